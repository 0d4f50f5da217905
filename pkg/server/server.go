// Package server expose en HTTP les jeux nettoyés, les indicateurs et la
// segmentation RFM au front du tableau de bord.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"retail-rfm/pkg/cache"
	"retail-rfm/pkg/calculator"
	"retail-rfm/pkg/models"
)

type Options struct {
	Pipeline           models.Config
	MaxUploadMB        int
	RateLimitPerMinute int // 0 = envois non limités
	CORSOrigins        []string
	SamplePath         string
	Store              cache.Store
	Sinks              []calculator.Sink
}

type Server struct {
	opts  Options
	store cache.Store
}

func New(opts Options) *Server {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 200
	}
	store := opts.Store
	if store == nil {
		store = cache.NewMemoryStore(8)
	}
	return &Server{opts: opts, store: store}
}

// Router monte les middlewares et les routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = int64(s.opts.MaxUploadMB) << 20
	r.Use(RequestID(), Recovery(), RequestLogger())
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.opts.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/datasets")
	uploads := []gin.HandlerFunc{}
	if s.opts.RateLimitPerMinute > 0 {
		uploads = append(uploads, NewIPRateLimiter(s.opts.RateLimitPerMinute).RateLimit())
	}
	api.POST("", append(uploads, s.upload)...)
	api.POST("/sample", append(uploads, s.sample)...)
	api.GET("/:id", s.report)
	api.GET("/:id/rows", s.rows)
	api.GET("/:id/quality", s.quality)
	api.GET("/:id/overview", s.overview)
	api.GET("/:id/rfm", s.customers)
	api.GET("/:id/segments", s.segments)
	api.POST("/:id/export", s.export)

	return r
}

// ListenAndServe sert jusqu'à l'annulation de ctx puis s'arrête proprement.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
