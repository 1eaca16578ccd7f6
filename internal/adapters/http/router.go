package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Call/internal/app/call"
	"github.com/dkeye/Call/internal/config"
	"github.com/dkeye/Call/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CallService is the part of the call manager the inspection API exposes.
type CallService interface {
	Snapshot() call.Snapshot
	Subscribe() *call.Subscription
	ToggleMedia(kind domain.MediaKind) bool
	ClosePC()
}

type handler struct {
	ctx        context.Context
	svc        CallService
	pingPeriod time.Duration
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc CallService) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &handler{ctx: ctx, svc: svc, pingPeriod: cfg.PingPeriod}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/call")
	api.GET("/state", h.state)
	api.GET("/events", h.events)
	api.POST("/media/:kind/toggle", h.toggle)
	api.POST("/hangup", h.hangup)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func (h *handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot())
}

func (h *handler) toggle(c *gin.Context) {
	kind := domain.MediaKind(c.Param("kind"))
	if kind != domain.KindVideo && kind != domain.KindAudio {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be video or audio"})
		return
	}
	enabled := h.svc.ToggleMedia(kind)
	log.Info().Str("module", "adapters.http").Str("kind", kind.String()).Bool("enabled", enabled).Msg("toggle media")
	c.JSON(http.StatusOK, gin.H{"kind": kind, "enabled": enabled})
}

func (h *handler) hangup(c *gin.Context) {
	h.svc.ClosePC()
	c.Status(http.StatusNoContent)
}
