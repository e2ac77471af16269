// Package server serves a rendered elevation tile over HTTP with a click to
// query page.
package server

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/twpayne/go-demview"
	"github.com/twpayne/go-demview/internal/logger"
	"github.com/twpayne/go-demview/render"
)

const (
	maxWidth       = 4096
	colorbarWidth  = 90
	colorbarHeight = 300
)

var (
	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demview_queries_total",
		Help: "The total number of point queries by result",
	}, []string{"result"})
	pngCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demview_png_cache_misses_total",
		Help: "The total number of rendered PNGs",
	})
)

//go:embed index.html.tmpl
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// A pngKey identifies a rendered PNG.
type pngKey struct {
	kind     string
	colormap string
	width    int
}

type pngEntry struct {
	data []byte
	etag string
}

// A Server serves a single tile.
type Server struct {
	mapper       *demview.Mapper
	name         string
	epsg         int
	reprojector  *demview.Reprojector
	colormapName string
	width        int
	pngCacheSize int
	lo, hi       float64
	pngCache     *otter.Cache[pngKey, pngEntry]
	logger       *zerolog.Logger
}

// An Option sets an option on a Server.
type Option func(*Server)

// WithColormap sets the default colormap name.
func WithColormap(colormapName string) Option {
	return func(s *Server) {
		s.colormapName = colormapName
	}
}

// WithEPSG sets the EPSG code reported for the tile.
func WithEPSG(epsg int) Option {
	return func(s *Server) {
		s.epsg = epsg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithName sets the tile name shown on the page.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithPNGCacheSize sets the maximum number of cached PNGs.
func WithPNGCacheSize(pngCacheSize int) Option {
	return func(s *Server) {
		s.pngCacheSize = pngCacheSize
	}
}

// WithReprojector sets the reprojector used to add longitudes and latitudes
// to query results.
func WithReprojector(reprojector *demview.Reprojector) Option {
	return func(s *Server) {
		s.reprojector = reprojector
	}
}

// WithWidth sets the default display width.
func WithWidth(width int) Option {
	return func(s *Server) {
		s.width = width
	}
}

// New returns a new Server for mapper.
func New(mapper *demview.Mapper, options ...Option) (*Server, error) {
	nop := zerolog.Nop()
	s := &Server{
		mapper:       mapper,
		name:         "tile",
		colormapName: render.DefaultColormapName,
		width:        800,
		pngCacheSize: 64,
		logger:       &nop,
	}
	for _, option := range options {
		option(s)
	}
	if _, err := render.LookupColormap(s.colormapName); err != nil {
		return nil, err
	}
	if s.width <= 0 || s.width > maxWidth {
		return nil, fmt.Errorf("%d: invalid width", s.width)
	}
	s.lo, s.hi = render.Range(mapper.Grid())

	var err error
	s.pngCache, err = otter.New(&otter.Options[pngKey, pngEntry]{
		MaximumSize: max(s.pngCacheSize, 1),
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns s's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logging)

	r.Get("/", s.handleIndex)
	r.Get("/tile.png", s.handleTilePNG)
	r.Get("/colorbar.png", s.handleColorbarPNG)
	r.Get("/api/info", s.handleInfo)
	r.Get("/api/query", s.handleQuery)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

// Run serves handler on addr until ctx is done.
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = logger.NewID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := logger.WithRequestID(r.Context(), reqID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.FromContext(ctx, s.logger).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cols, rows := s.mapper.Grid().Dims()
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, struct {
		Name      string
		Cols      int
		Rows      int
		Width     int
		Colormap  string
		Colormaps []string
	}{
		Name:      s.name,
		Cols:      cols,
		Rows:      rows,
		Width:     s.width,
		Colormap:  s.colormapName,
		Colormaps: render.ColormapNames(),
	}); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleTilePNG(w http.ResponseWriter, r *http.Request) {
	width := s.width
	if value := r.URL.Query().Get("width"); value != "" {
		var err error
		width, err = strconv.Atoi(value)
		if err != nil || width <= 0 || width > maxWidth {
			s.badRequest(w, fmt.Errorf("%s: invalid width", value))
			return
		}
	}
	s.servePNG(w, r, pngKey{kind: "tile", width: width})
}

func (s *Server) handleColorbarPNG(w http.ResponseWriter, r *http.Request) {
	s.servePNG(w, r, pngKey{kind: "colorbar", width: colorbarWidth})
}

// servePNG serves the PNG identified by key, rendering it on a cache miss.
func (s *Server) servePNG(w http.ResponseWriter, r *http.Request, key pngKey) {
	key.colormap = r.URL.Query().Get("cmap")
	if key.colormap == "" {
		key.colormap = s.colormapName
	}
	colormap, err := render.LookupColormap(key.colormap)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	entry, err := s.pngCache.Get(r.Context(), key, otter.LoaderFunc[pngKey, pngEntry](func(_ context.Context, key pngKey) (pngEntry, error) {
		pngCacheMisses.Inc()
		return s.renderPNG(key, colormap)
	}))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("ETag", entry.etag)
	w.Header().Set("Cache-Control", "max-age=3600")
	if match := r.Header.Get("If-None-Match"); match == entry.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.data)))
	_, _ = w.Write(entry.data)
}

func (s *Server) renderPNG(key pngKey, colormap render.Colormap) (pngEntry, error) {
	var buf bytes.Buffer
	switch key.kind {
	case "colorbar":
		img := render.Colorbar(colormap, s.lo, s.hi, key.width, colorbarHeight)
		if err := render.EncodePNG(&buf, img); err != nil {
			return pngEntry{}, err
		}
	default:
		img := render.ScaleToWidth(render.Image(s.mapper.Grid(), colormap, s.lo, s.hi), key.width)
		if err := render.EncodePNG(&buf, img); err != nil {
			return pngEntry{}, err
		}
	}
	data := buf.Bytes()
	return pngEntry{
		data: data,
		etag: fmt.Sprintf(`"%016x"`, xxhash.Sum64(data)),
	}, nil
}

// An infoResponse describes the served tile.
type infoResponse struct {
	Name      string     `json:"name"`
	Cols      int        `json:"cols"`
	Rows      int        `json:"rows"`
	Transform [6]float64 `json:"transform"`
	Extent    [4]float64 `json:"extent"`
	EPSG      int        `json:"epsg,omitempty"`
	Range     [2]float64 `json:"range"`
	Colormaps []string   `json:"colormaps"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	cols, rows := s.mapper.Grid().Dims()
	minX, minY, maxX, maxY := s.mapper.Extent()
	writeJSON(w, http.StatusOK, infoResponse{
		Name:      s.name,
		Cols:      cols,
		Rows:      rows,
		Transform: s.mapper.Transform().Coefficients(),
		Extent:    [4]float64{minX, minY, maxX, maxY},
		EPSG:      s.epsg,
		Range:     [2]float64{s.lo, s.hi},
		Colormaps: render.ColormapNames(),
	})
}

// A queryResponse is the result of a point query. Value is null for missing
// samples.
type queryResponse struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Col   int      `json:"col"`
	Row   int      `json:"row"`
	Value *float64 `json:"value"`
	Lon   *float64 `json:"lon,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	x, errX := parseFloat(query.Get("x"))
	y, errY := parseFloat(query.Get("y"))
	if err := errors.Join(errX, errY); err != nil {
		queries.WithLabelValues("bad_request").Inc()
		s.badRequest(w, err)
		return
	}
	interpolate, _ := strconv.ParseBool(query.Get("interpolate"))

	queryFunc := s.mapper.Query
	if interpolate {
		queryFunc = s.mapper.Interpolate
	}
	result, err := queryFunc(x, y)
	switch {
	case errors.Is(err, demview.ErrOutOfBounds):
		queries.WithLabelValues("out_of_bounds").Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, demview.ErrInvalidTransform):
		queries.WithLabelValues("invalid_transform").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}
	queries.WithLabelValues("ok").Inc()

	response := queryResponse{
		X:   result.X,
		Y:   result.Y,
		Col: result.Col,
		Row: result.Row,
	}
	if !math.IsNaN(result.Value) {
		response.Value = &result.Value
	}
	if s.reprojector != nil {
		lon, lat, err := s.reprojector.ToWGS84(x, y)
		if err != nil {
			logger.FromContext(r.Context(), s.logger).Warn().Err(err).Msg("reproject")
		} else {
			response.Lon, response.Lat = &lon, &lat
		}
	}
	logger.FromContext(r.Context(), s.logger).Info().
		Float64("x", x).
		Float64("y", y).
		Int("col", result.Col).
		Int("row", result.Row).
		Float64("value", result.Value).
		Msg("query")
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), s.logger).Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("missing coordinate")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: invalid coordinate", s)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
