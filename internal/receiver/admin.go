package receiver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/arqlink/internal/auth"
	"github.com/danmuck/arqlink/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// AdminConfig configures the receiver's HTTP introspection API.
type AdminConfig struct {
	NodeID      string
	Addr        string
	Token       string
	CorsOrigins []string
}

// Admin exposes health, metrics, per-peer cursors and counters over HTTP.
type Admin struct {
	cfg       AdminConfig
	receiver  *Receiver
	validator auth.Validator
	router    *gin.Engine
	appeared  time.Time
}

func NewAdmin(r *Receiver, cfg AdminConfig) *Admin {
	observability.RegisterMetrics()
	if strings.TrimSpace(cfg.NodeID) == "" {
		cfg.NodeID = "receiver"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(log.Logger))
	router.Use(observability.RequestMetricsMiddleware(cfg.NodeID))
	router.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	a := &Admin{
		cfg:       cfg,
		receiver:  r,
		validator: auth.StaticToken{Token: cfg.Token},
		router:    router,
		appeared:  time.Now(),
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Handler() http.Handler {
	return a.router
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.appeared).String(),
			"service": a.cfg.NodeID,
		})
	})

	a.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"service": a.cfg.NodeID,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.receiver.Stats())
	})

	a.router.GET("/peers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"peers": a.receiver.Cursors().List()})
	})

	a.router.GET("/peers/:peer", func(c *gin.Context) {
		cur, ok := a.receiver.Cursors().Get(c.Param("peer"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
			return
		}
		c.JSON(http.StatusOK, cur)
	})

	a.router.DELETE("/peers/:peer", a.requireToken(), func(c *gin.Context) {
		if !a.receiver.Cursors().Reset(c.Param("peer")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	})
}

func (a *Admin) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if err := a.validator.Validate(token); err != nil {
			status := http.StatusUnauthorized
			if a.cfg.Token == "" {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// ListenAndServe runs the admin API until ctx is cancelled.
func (a *Admin) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
