package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/stationprobe/internal/metrics"
	"github.com/loykin/stationprobe/internal/results"
	"github.com/prometheus/client_golang/prometheus"
)

// Router exposes the results store over HTTP.
// Endpoints:
//
//	GET /metrics                       Prometheus exposition
//	GET {basePath}/stations            every station's latest result
//	GET {basePath}/stations/:name      one station, 404 if not configured
//	GET /healthz                       ok plus seconds since the last cycle
type Router struct {
	store    *results.Store
	gatherer prometheus.Gatherer
	basePath string
}

// NewRouter constructs a Router. basePath prefixes the JSON API, e.g. "/api".
func NewRouter(store *results.Store, g prometheus.Gatherer, basePath string) *Router {
	return &Router{store: store, gatherer: g, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/metrics", gin.WrapH(metrics.HandlerFor(r.gatherer)))
	g.GET("/healthz", r.handleHealth)
	group := g.Group(r.basePath)
	group.GET("/stations", r.handleStations)
	group.GET("/stations/:name", r.handleStation)
	return g
}

type errorResp struct {
	Error string `json:"error"`
}

type healthResp struct {
	Status                string  `json:"status"`
	SecondsSinceLastCycle float64 `json:"secondsSinceLastCycle"`
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, healthResp{Status: "ok", SecondsSinceLastCycle: r.store.SinceLastCycle().Seconds()})
}

func (r *Router) handleStations(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.store.Snapshot())
}

func (r *Router) handleStation(c *gin.Context) {
	name := c.Param("name")
	res, ok := r.store.Get(name)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown station " + name})
		return
	}
	writeJSON(c, http.StatusOK, results.StationStatus{Station: name, Result: res})
}

// Server wraps the http.Server serving a Router.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *slog.Logger
}

// NewServer binds addr and starts serving h in the background. tlsCfg may be nil.
func NewServer(addr string, h http.Handler, tlsCfg *tls.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	s := &Server{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ln:  ln,
		log: logger,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", slog.Any("error", err))
		}
	}()
	s.log.Info("http server listening", slog.String("addr", ln.Addr().String()), slog.Bool("tls", tlsCfg != nil))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
