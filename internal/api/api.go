// Package api provides the HTTP control API for httpmap's serve mode.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/httpmap/httpmap/internal/config"
	"github.com/httpmap/httpmap/internal/netenum"
	"github.com/httpmap/httpmap/internal/scanner"
	"go.uber.org/zap"
)

// Server represents the HTTP control API server.
type Server struct {
	config  config.Config
	scanner *scanner.Scanner
	logger  *zap.SugaredLogger
	router  *gin.Engine

	mu      sync.Mutex
	cancel  context.CancelFunc
	results []EndpointResult
}

// New creates a new API server.
func New(cfg config.Config, scan *scanner.Scanner, logger *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:  cfg,
		scanner: scan,
		logger:  logger,
		router:  gin.New(),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readyHandler)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/scan/start", s.startScanHandler)
		v1.POST("/scan/stop", s.stopScanHandler)
		v1.GET("/scan/status", s.scanStatusHandler)
		v1.GET("/scan/results", s.scanResultsHandler)

		v1.POST("/probe", s.probeHandler)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		c.Next()

		s.logger.Debugw("Request completed",
			"path", path,
			"status", c.Writer.Status(),
			"method", c.Request.Method,
		)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "httpmap",
	})
}

func (s *Server) readyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "httpmap",
	})
}

// startScanHandler launches a scan of the requested (or locally derived)
// subnet. Results accumulate in memory until the next scan starts.
func (s *Server) startScanHandler(c *gin.Context) {
	var req StartScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	scanCfg := s.config.Scan
	if req.SubnetPrefix != 0 {
		scanCfg.SubnetPrefix = req.SubnetPrefix
	}

	base := net.ParseIP(req.BaseIP)
	if base == nil {
		local, err := netenum.LocalIPv4()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		base = local
	}

	subnet, err := netenum.New(base, scanCfg.SubnetPrefix)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	scan, err := s.scanner.Start(ctx, subnet)
	if err != nil {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.cancel = cancel
	s.results = s.results[:0]
	s.mu.Unlock()

	go s.collect(scan)

	c.JSON(http.StatusOK, gin.H{
		"status":  "started",
		"scan_id": scan.ID,
		"subnet":  subnet.String(),
		"targets": scan.Progress.Total(),
	})
}

// collect drains the scan's result stream into the in-memory buffer.
func (s *Server) collect(scan *scanner.Scan) {
	for r := range scan.Results() {
		s.mu.Lock()
		s.results = append(s.results, EndpointResult{
			IP:         r.Target.IP.String(),
			Port:       r.Target.Port,
			Scheme:     r.Target.Scheme(),
			URL:        r.Target.URL(),
			StatusCode: r.StatusCode,
			Title:      r.Title,
			ElapsedMS:  r.Elapsed.Milliseconds(),
		})
		s.mu.Unlock()
	}
}

// stopScanHandler cancels the in-flight scan. The engine itself always runs
// its dispatched targets to an outcome; stop only ends admission of new ones.
func (s *Server) stopScanHandler(c *gin.Context) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "stopping",
		"message": "scan admission stopped; in-flight probes will finish",
	})
}

func (s *Server) scanStatusHandler(c *gin.Context) {
	resp := ScanStatusResponse{Status: "idle"}

	if scan := s.scanner.Current(); scan != nil {
		resp.ScanID = scan.ID
		resp.Subnet = scan.Subnet.String()
		resp.Completed = scan.Progress.Completed()
		resp.Total = scan.Progress.Total()
		resp.Responded = scan.Progress.Responded()
		resp.Fraction = scan.Progress.Fraction()
	}
	if s.scanner.IsRunning() {
		resp.Status = "running"
		resp.Running = true
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) scanResultsHandler(c *gin.Context) {
	s.mu.Lock()
	results := make([]EndpointResult, len(s.results))
	copy(results, s.results)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// probeHandler probes a single (address, port) target synchronously.
func (s *Server) probeHandler(c *gin.Context) {
	var req ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := netenum.Target{IP: net.ParseIP(req.IP), Port: req.Port}
	result := s.scanner.ProbeOne(c.Request.Context(), target)

	resp := gin.H{
		"target":    target.Addr(),
		"responded": result.Responded,
	}
	if result.Responded {
		resp["status_code"] = result.StatusCode
		resp["title"] = result.Title
		resp["elapsed_ms"] = result.Elapsed.Milliseconds()
	} else {
		resp["reason"] = result.Reason
	}

	c.JSON(http.StatusOK, resp)
}
