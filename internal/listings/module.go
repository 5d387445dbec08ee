// Package listings is the listing reconciliation bounded context: MLS
// connections, external status sync and the sold-listing unpublish
// cascade.
package listings

import (
	"github.com/sngor/bayon-backend/internal/events"
	apphttp "github.com/sngor/bayon-backend/internal/http"
	"github.com/sngor/bayon-backend/internal/listings/handler"
	"github.com/sngor/bayon-backend/internal/listings/mls"
	"github.com/sngor/bayon-backend/internal/listings/repository"
	"github.com/sngor/bayon-backend/internal/listings/service"
	"github.com/sngor/bayon-backend/internal/listings/social"
	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/logger"
	"github.com/sngor/bayon-backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	svc     *service.Service
	handler *handler.HTTPHandler
}

func New(pool *pgxpool.Pool, cfg *config.Config, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, mls.NewClient(cfg), social.NewClient(cfg, log), bus, log)

	return &Module{
		svc:     svc,
		handler: handler.NewHTTPHandler(svc, val, log),
	}
}

func (m *Module) Name() string { return "listings" }

// Service exposes the domain service to the scheduler worker.
func (m *Module) Service() *service.Service { return m.svc }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/mls"))
	m.handler.RegisterCronRoutes(ctx.Cron)
}
