// Package api serves the admin HTTP surface: health, metrics, population
// stats and the published image directory.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"synthpop/internal/logging"
	"synthpop/internal/population"
)

type Census interface {
	Census(ctx context.Context) (humans, synthetic int, err error)
}

type Options struct {
	Census      Census
	TargetRatio float64
	Metrics     http.Handler
	ImageDir    string
	Log         logging.Logger
}

func NewRouter(o Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(o.Log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "synthpop"})
	})
	if o.Metrics != nil {
		r.GET("/metrics", gin.WrapH(o.Metrics))
	}
	r.GET("/stats", func(c *gin.Context) {
		humans, synthetic, err := o.Census.Census(c.Request.Context())
		if err != nil {
			o.Log.WithError(err).Warn("stats census failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"humans":       humans,
			"synthetic":    synthetic,
			"ratio":        population.Ratio(humans, synthetic),
			"target_ratio": o.TargetRatio,
			"needed":       population.Needed(o.TargetRatio, humans, synthetic),
		})
	})
	if o.ImageDir != "" {
		r.Static("/images", o.ImageDir)
	}
	return r
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logging.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("admin request")
	}
}

// Server wraps the router with graceful shutdown.
type Server struct {
	srv *http.Server
	log logging.Logger
}

func NewServer(addr string, handler http.Handler, log logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("admin server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
