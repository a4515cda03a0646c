package router

import (
	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/api/http/handler"
	"github.com/Alijeyrad/destek_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/auth"
	"github.com/Alijeyrad/destek_backend/internal/service/file"
	"github.com/Alijeyrad/destek_backend/internal/service/project"
	"github.com/Alijeyrad/destek_backend/internal/service/team"
	"github.com/Alijeyrad/destek_backend/internal/service/ticket"
	"github.com/Alijeyrad/destek_backend/internal/service/user"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type permFunc func(authorize.Resource, authorize.Action) fiber.Handler

type Params struct {
	fx.In

	Cfg        *config.Config
	Redis      *redis.Client
	Auth       authorize.IAuthorization
	AuthSvc    auth.Service
	UserSvc    user.Service
	TicketSvc  ticket.Service
	TeamSvc    team.Service
	ProjectSvc project.Service
	FileSvc    file.Service
	AuditSvc   audit.Service
	PasetoMgr  *pasetotoken.Manager
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.AuthSvc)
	var signInLimit fiber.Handler = func(c fiber.Ctx) error { return c.Next() }
	if r.p.Cfg.Server.Environment == "production" {
		signInLimit = middleware.NewAuthLimiter(r.p.Redis)
	}

	// Permission helper
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	// 3. Initialize Handlers
	authH := handler.NewAuthHandler(r.p.AuthSvc)
	userH := handler.NewUserHandler(r.p.UserSvc)
	ticketH := handler.NewTicketHandler(r.p.TicketSvc)
	teamH := handler.NewTeamHandler(r.p.TeamSvc)
	projectH := handler.NewProjectHandler(r.p.ProjectSvc)
	fileH := handler.NewFileHandler(r.p.FileSvc)
	auditH := handler.NewAuditHandler(r.p.AuditSvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerAuthRoutes(api, authH, authRequired, signInLimit, requirePerm)
	r.registerUserRoutes(api, userH, authRequired, requirePerm)
	r.registerTicketRoutes(api, ticketH, authRequired, requirePerm)
	r.registerTeamRoutes(api, teamH, authRequired, requirePerm)
	r.registerProjectRoutes(api, projectH, authRequired, requirePerm)
	r.registerFileRoutes(api, fileH, authRequired, requirePerm)
	r.registerAuditRoutes(api, auditH, authRequired, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if r.p.Cfg.Authorization.HealthCheckEnabled && !authorize.IsPolicyHealthy() {
				return false
			}
			return r.p.Redis.Ping(c.Context()).Err() == nil
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
