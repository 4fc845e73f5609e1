// Package webmap serves the choropleth to browsers: an SVG map with a year slider whose input
// events travel over a websocket, plus JSON and PNG views of a single year.
package webmap

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/biter777/countries"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sudorandom/energy-map/pkg/choropleth"
	"github.com/sudorandom/energy-map/pkg/mapdraw"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const socketPath = "/ws"

type pathData struct {
	Index int
	D     string
	Name  string
}

type legendData struct {
	Label string
	Hex   string
}

type pageData struct {
	Width, Height    int
	Paths            []pathData
	Legend           []legendData
	Fallback         string
	Year             int
	MinYear, MaxYear int
	TransitionMS     int64
	SocketPath       string
}

// Server holds the loaded dataset, which it never joins itself. Every page session and API
// request works on its own clone.
type Server struct {
	data     *choropleth.Dataset
	scale    choropleth.ColorScale
	raster   *mapdraw.Raster
	page     pageData
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewServer(data *choropleth.Dataset) *Server {
	proj := mapdraw.NewProjection(mapdraw.Width, mapdraw.Height)
	scale := choropleth.DefaultScale

	page := pageData{
		Width:        mapdraw.Width,
		Height:       mapdraw.Height,
		Fallback:     choropleth.Hex(scale.Fallback),
		Year:         data.ClampYear(choropleth.DefaultYear),
		TransitionMS: choropleth.TransitionDuration.Milliseconds(),
		SocketPath:   socketPath,
	}
	page.MinYear, page.MaxYear = page.Year, page.Year
	if lo, hi, ok := data.YearRange(); ok {
		page.MinYear, page.MaxYear = lo, hi
	}
	for i, f := range data.Features {
		page.Paths = append(page.Paths, pathData{Index: i, D: proj.SVGPath(f), Name: choropleth.FeatureName(f)})
	}
	for _, entry := range scale.Legend() {
		page.Legend = append(page.Legend, legendData{Label: entry.Label, Hex: choropleth.Hex(entry.Color)})
	}

	return &Server{
		data:   data,
		scale:  scale,
		raster: mapdraw.NewRaster(proj, data.Features),
		page:   page,
		log:    zap.L().Named("webmap"),
	}
}

// Routes returns the HTTP handler for the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/", s.handleIndex)
	r.Get(socketPath, s.handleSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/years", s.handleYears)
	r.Get("/api/years/{year}", s.handleYear)
	r.Get("/snapshot/{year}.png", s.handleSnapshot)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if eris.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "http server")
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http access",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", r.RemoteAddr),
		)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.page); err != nil {
		s.log.Error("error rendering page", zap.Error(err))
	}
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"years": s.data.Years()})
}

type countryValue struct {
	Name   string   `json:"name"`
	Alpha3 string   `json:"iso_alpha3,omitempty"`
	Energy *float64 `json:"energy"`
	Color  string   `json:"color"`
}

type yearResponse struct {
	Year      int            `json:"year"`
	Matched   int            `json:"matched"`
	Countries []countryValue `json:"countries"`
}

// joinedFills joins year on a private clone of the dataset.
func (s *Server) joinedFills(year int) (*choropleth.Dataset, int) {
	clone := s.data.Clone()
	matched := choropleth.JoinYear(year, clone.Features, clone.Records)
	return clone, matched
}

func (s *Server) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := choropleth.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, false
	}
	return year, true
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	clone, matched := s.joinedFills(year)
	resp := yearResponse{Year: year, Matched: matched, Countries: make([]countryValue, 0, len(clone.Features))}
	for _, f := range clone.Features {
		name := choropleth.FeatureName(f)
		cv := countryValue{Name: name, Color: choropleth.Hex(s.scale.FeatureColor(f))}
		if v, ok := choropleth.Energy(f); ok {
			cv.Energy = &v
		}
		if code := countries.ByName(name); code != countries.Unknown {
			cv.Alpha3 = code.Alpha3()
		}
		resp.Countries = append(resp.Countries, cv)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	clone, _ := s.joinedFills(year)
	img, err := mapdraw.RenderSnapshot(s.raster, s.scale.Fills(clone.Features), year, s.scale.Legend(), mapdraw.DefaultStyle)
	if err != nil {
		s.log.Error("error rendering snapshot", zap.Int("year", year), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(3600))
	if err := mapdraw.WritePNG(w, img); err != nil {
		s.log.Warn("error writing snapshot", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("error writing response", zap.Error(err))
	}
}
