// Package devserver is a self-contained backend for local development:
// the REST surface plus the realtime presence channel, backed by
// Postgres. It implements the same wire contracts the client speaks
// against the real service.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"workmap/internal/auth"
	"workmap/internal/common/config"
	"workmap/internal/common/contextx"
	"workmap/internal/common/log"
	"workmap/internal/devserver/store"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tokenTTL = 24 * time.Hour

type Server struct {
	http   *http.Server
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New wires the repositories, handlers and routes into a ready server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	pool, err := store.NewPool(ctx, cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	users := store.NewUserRepository(pool)
	profiles := store.NewProfileRepository(pool)
	positions := store.NewPositionRepository(pool)
	tokens := auth.NewManager(cfg.Server.JWTSecret, tokenTTL)

	handlers := NewHandlers(users, profiles, positions, tokens, logger)
	hub := NewHub(logger)
	realtime := NewRealtimeHandler(hub, tokens, positions, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware())

	router.POST("/usuarios", handlers.Register)
	router.POST("/login", handlers.Login)
	router.GET("/ws", gin.WrapH(realtime))

	authed := router.Group("/", handlers.RequireAuth)
	authed.GET("/usuarios/cerca", handlers.Nearby)
	authed.POST("/perfiles", handlers.SaveProfile)
	authed.POST("/publicaciones", handlers.CreatePosting)
	authed.GET("/publicaciones", handlers.ListPostings)

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		pool:   pool,
		logger: logger,
	}, nil
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, s.logger, "server_started", "Listening on "+s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.pool.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.pool.Close()
	log.Info(context.Background(), s.logger, "server_stopped", "Server stopped")
	return err
}

// requestIDMiddleware stamps every request with an ID so log lines from
// one call can be correlated.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := contextx.WithNewRequestID(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
