// Package health exposes the liveness endpoint used by the hosting
// platform to keep the bot alive.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/fasters/starshop/core/logger"
)

// Server is a minimal HTTP server answering GET /ping.
type Server struct {
	srv *http.Server
}

// NewRouter builds the gin engine with the liveness route.
func NewRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

// New constructs the server on the given port.
func New(port int) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Shutdown is called.
func (s *Server) Start() {
	go func() {
		logger.Info(context.Background(), "health", "listen",
			slog.String("listen", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "health", "serve.failed",
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
