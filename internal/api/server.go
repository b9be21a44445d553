// Package api exposes widget sessions over HTTP and WebSocket and serves the
// embed script and widget pages.
package api

import (
	"embed"
	"log/slog"
	"net/http"

	"seasonbot/internal/catalog"
	"seasonbot/internal/logger"
	"seasonbot/internal/monitoring"
	"seasonbot/internal/widget"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed web
var webFS embed.FS

// Options configures a Server
type Options struct {
	Manager *widget.Manager
	Catalog *catalog.Catalog
	Tokens  *TokenIssuer
	Metrics *monitoring.MetricsCollector
	Monitor *monitoring.Monitor
	// Logger also provides the request middleware; nil logs nothing
	Logger *logger.Logger
}

// Server handles widget API requests
type Server struct {
	router  *gin.Engine
	manager *widget.Manager
	catalog *catalog.Catalog
	tokens  *TokenIssuer
	metrics *monitoring.MetricsCollector
	monitor *monitoring.Monitor
	hub     *Hub
	logger  *slog.Logger
}

// NewServer creates a new server instance and subscribes its WebSocket hub
// to session updates
func NewServer(opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	log := logger.Discard()
	if opts.Logger != nil {
		router.Use(opts.Logger.GinMiddleware())
		log = opts.Logger.Component("api")
	}

	monitor := opts.Monitor
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}

	server := &Server{
		router:  router,
		manager: opts.Manager,
		catalog: opts.Catalog,
		tokens:  opts.Tokens,
		metrics: opts.Metrics,
		monitor: monitor,
		hub:     NewHub(log),
		logger:  log,
	}
	server.manager.Subscribe(server.hub.Publish)

	server.setupRoutes()
	return server
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.manager.Count()})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	s.router.GET("/", s.handleLauncher)
	s.router.GET("/embed", s.handleFrame)
	s.router.GET("/embed.js", s.handleEmbedScript)
	s.router.GET("/ws/:id", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/metrics", s.handleMetrics)
		v1.GET("/menu", s.handleMenu)
		v1.GET("/menu/search", s.handleSearch)
		v1.POST("/sessions", s.handleCreateSession)

		session := v1.Group("/sessions/:id", s.requireSession)
		{
			session.GET("", s.handleGetSession)
			session.DELETE("", s.handleDeleteSession)
			session.POST("/reset", s.handleResetSession)
			session.POST("/messages", s.handleSendMessage)
			session.PUT("/tab", s.handleSetTab)
			session.GET("/receipt/:orderId/qr.png", s.handleReceiptQR)

			wiz := session.Group("/wizard")
			{
				wiz.GET("", s.handleWizardState)
				wiz.PUT("/view", s.handleWizardView)
				wiz.PUT("/category", s.handleWizardCategory)
				wiz.POST("/items", s.handleWizardAddItem)
				wiz.PATCH("/items/:code", s.handleWizardQuantity)
				wiz.PUT("/items/:code/note", s.handleWizardNote)
				wiz.DELETE("/items/:code", s.handleWizardRemoveItem)
				wiz.PUT("/customer", s.handleWizardCustomer)
				wiz.POST("/location", s.handleWizardLocation)
				wiz.POST("/suggestion", s.handleWizardSuggestion)
				wiz.GET("/validation", s.handleWizardValidation)
				wiz.POST("/submit", s.handleWizardSubmit)
			}
		}
	}
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) serveAsset(c *gin.Context, name, contentType string) {
	data, err := webFS.ReadFile("web/" + name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// handleLauncher serves the demo page with the floating launcher
func (s *Server) handleLauncher(c *gin.Context) {
	s.serveAsset(c, "launcher.html", "text/html; charset=utf-8")
}

// handleFrame serves the standalone widget loaded inside the iframe
func (s *Server) handleFrame(c *gin.Context) {
	s.serveAsset(c, "frame.html", "text/html; charset=utf-8")
}

// handleEmbedScript serves the script third-party pages include
func (s *Server) handleEmbedScript(c *gin.Context) {
	s.serveAsset(c, "embed.js", "application/javascript; charset=utf-8")
}
