// Package openhouse is the open-house follow-up bounded context: session
// management, visitor check-in, touchpoint scheduling and dispatch, and
// engagement tracking.
package openhouse

import (
	"context"

	"github.com/sngor/bayon-backend/internal/events"
	apphttp "github.com/sngor/bayon-backend/internal/http"
	"github.com/sngor/bayon-backend/internal/messaging/content"
	"github.com/sngor/bayon-backend/internal/messaging/email"
	"github.com/sngor/bayon-backend/internal/messaging/sms"
	"github.com/sngor/bayon-backend/internal/openhouse/handler"
	"github.com/sngor/bayon-backend/internal/openhouse/repository"
	"github.com/sngor/bayon-backend/internal/openhouse/service"
	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/logger"
	"github.com/sngor/bayon-backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	svc     *service.Service
	handler *handler.HTTPHandler
}

// New wires the open-house module. The personalizer and object store
// are optional; nil disables AI personalization and QR downloads.
func New(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, bus events.Bus, objects service.ObjectStore, val *validator.Validator, log *logger.Logger) (*Module, error) {
	emailSender, err := email.NewSender(cfg)
	if err != nil {
		return nil, err
	}

	personalizer, err := content.NewGeminiPersonalizer(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, emailSender, sms.NewClient(cfg, log), personalizerOrNil(personalizer), objects, bus, cfg, log)

	if err := svc.LoadDefaultSequence(cfg.GetSequenceDefaultsPath()); err != nil {
		// A broken defaults file disables the fallback, nothing more.
		log.Warn("default sequence unavailable", "error", err)
	}

	return &Module{
		svc:     svc,
		handler: handler.NewHTTPHandler(svc, val, cfg.GetPublicBaseURL(), log),
	}, nil
}

func (m *Module) Name() string { return "openhouse" }

// Service exposes the domain service to the scheduler worker.
func (m *Module) Service() *service.Service { return m.svc }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/openhouse"))

	m.handler.RegisterPublicRoutes(ctx.Public, ctx.CheckinRateLimiter.RateLimit())

	m.handler.RegisterCronRoutes(ctx.Cron)
	ctx.Engine.GET("/process-touchpoints", m.handler.ProcessTouchpointsLiveness)
}

// personalizerOrNil keeps a typed-nil *GeminiPersonalizer from hiding
// inside a non-nil interface value.
func personalizerOrNil(p *content.GeminiPersonalizer) service.Personalizer {
	if p == nil {
		return nil
	}
	return p
}
