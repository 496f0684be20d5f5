package webgen

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jlevy/kash-media/pkg/logger"
	"github.com/jlevy/kash-media/pkg/presenter"
	"github.com/jlevy/kash-media/pkg/types/item"
	"github.com/jlevy/kash-media/pkg/workspace"
)

// DefaultPort is the local preview port.
const DefaultPort = 7777

var (
	metricsRegistry = prometheus.NewRegistry()

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kash",
			Subsystem: "serve",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kash",
			Subsystem: "serve",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	metricsRegistry.MustRegister(requestsTotal, requestDuration)
}

// ServerConfig holds the configuration for the preview server.
type ServerConfig struct {
	Host  string
	Port  int
	Watch bool
}

// NewServerConfig returns the default preview server configuration.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Host: "localhost",
		Port: DefaultPort,
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves a workspace for local preview: items render as pages,
// gallery configs render as the gallery itself, and exports and assets
// are served as files. With Watch enabled it also regenerates gallery
// exports when their configs change.
type Server struct {
	router *mux.Router
	ws     *workspace.Workspace
	config *ServerConfig
	server *http.Server
}

// NewServer creates a preview server over the given workspace.
func NewServer(ws *workspace.Workspace, config *ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router: mux.NewRouter(),
		ws:     ws,
		config: config,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.PathPrefix("/items/").HandlerFunc(s.handleItem).Methods("GET")
	s.router.PathPrefix("/raw/").HandlerFunc(s.handleRaw).Methods("GET")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(metricsMiddleware)
}

// handleIndex lists the workspace contents grouped by folder.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	paths, err := s.ws.List("")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	groups := make(map[string][]string)
	for _, p := range paths {
		folder := p
		if idx := strings.Index(p, "/"); idx >= 0 {
			folder = p[:idx]
		}
		groups[folder] = append(groups[folder], p)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(s.ws.Name()))
	if len(paths) == 0 {
		b.WriteString("<p>The workspace is empty.</p>\n")
	}
	for _, folder := range folderOrder(groups) {
		fmt.Fprintf(&b, "<h2>%s</h2>\n<ul>\n", html.EscapeString(folder))
		for _, p := range groups[folder] {
			fmt.Fprintf(&b, "<li><a href=\"/%s/%s\">%s</a></li>\n",
				routeFor(folder), html.EscapeString(p), html.EscapeString(p))
		}
		b.WriteString("</ul>\n")
	}

	page, err := renderBase(s.ws.Name(), b.String())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, page)
}

// folderOrder returns the workspace folders in display order: the known
// item folders first, anything else alphabetically after them.
func folderOrder(groups map[string][]string) []string {
	known := []string{
		item.TypeResource.Folder(),
		item.TypeDoc.Folder(),
		item.TypeConfig.Folder(),
		item.TypeExport.Folder(),
		item.TypeAsset.Folder(),
	}
	var order []string
	seen := make(map[string]bool)
	for _, folder := range known {
		if _, ok := groups[folder]; ok {
			order = append(order, folder)
			seen[folder] = true
		}
	}
	var rest []string
	for folder := range groups {
		if !seen[folder] {
			rest = append(rest, folder)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// routeFor picks how an index entry is served. Exports are standalone
// pages already and assets are binary, so both are served raw.
func routeFor(folder string) string {
	switch folder {
	case item.TypeExport.Folder(), item.TypeAsset.Folder():
		return "raw"
	default:
		return "items"
	}
}

// handleItem renders one workspace item as a page.
func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	storePath := strings.TrimPrefix(r.URL.Path, "/items/")
	it, err := s.ws.Load(storePath)
	if err != nil {
		logger.G(r.Context()).WithError(err).WithField("path", storePath).Debug("Item not found")
		http.NotFound(w, r)
		return
	}

	page, err := s.renderItem(it)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, page)
}

// renderItem picks the page for an item: a config with a parseable
// gallery body renders as the gallery, everything else as an item page.
func (s *Server) renderItem(it *item.Item) (string, error) {
	if it.Type == item.TypeConfig {
		if config, err := ParseGalleryConfig(it.Body); err == nil {
			return RenderGallery(config)
		}
	}
	return RenderItemPage(it)
}

// handleRaw serves a workspace file as is.
func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/raw/")
	abs, err := s.ws.AbsPath(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

// metricsMiddleware records request counts and latency, labeled by the
// matched route template to keep metric cardinality bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully. With Watch enabled it also starts the gallery watcher.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	if s.config.Watch {
		go func() {
			if err := s.watchGalleries(ctx); err != nil {
				logger.G(ctx).WithError(err).Error("Gallery watcher failed")
			}
		}()
	}

	presenter.Info(fmt.Sprintf("Serving workspace %s on http://%s", s.ws.Name(), address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("Preview server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop stops the server without waiting for in-flight requests.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
