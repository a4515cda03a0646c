package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/auth"
	svcfile "github.com/Alijeyrad/destek_backend/internal/service/file"
	"github.com/Alijeyrad/destek_backend/internal/service/notification"
	"github.com/Alijeyrad/destek_backend/internal/service/project"
	"github.com/Alijeyrad/destek_backend/internal/service/team"
	"github.com/Alijeyrad/destek_backend/internal/service/ticket"
	"github.com/Alijeyrad/destek_backend/internal/service/user"
	"github.com/Alijeyrad/destek_backend/pkg/constants"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/Alijeyrad/destek_backend/pkg/push"
	redispkg "github.com/Alijeyrad/destek_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/destek_backend/pkg/s3"
	"github.com/Alijeyrad/destek_backend/pkg/sms"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideAuditService,
		ProvideNotificationService,
		ProvideTeamService,
		ProvideProjectService,
		ProvideFileService,
		ProvideUserService,
		ProvideAuthService,
		ProvideTicketService,
	),
)

func ProvideAuditService(db *repo.Client, d *dispatch.Dispatcher) audit.Service {
	return audit.New(db, d)
}

func ProvideNotificationService(
	db *repo.Client,
	d *dispatch.Dispatcher,
	pushCli *push.Client,
	mail *email.Client,
	smsCli *sms.Client,
	cfg *config.Config,
) notification.Service {
	deps := notification.Deps{
		DB:        db,
		Dispatch:  d,
		Push:      pushCli,
		Mail:      mail,
		Operators: cfg.Authentication.AdminEmails,
	}
	// a nil *sms.Client must not become a non-nil interface
	if smsCli != nil {
		deps.SMS = smsCli
	}
	return notification.New(deps)
}

func ProvideTeamService(db *repo.Client, a audit.Service) team.Service {
	return team.New(db, a)
}

func ProvideProjectService(db *repo.Client, a audit.Service) project.Service {
	return project.New(db, a)
}

func ProvideFileService(s3 *s3pkg.Client, cfg *config.Config) svcfile.Service {
	var blobs svcfile.Blobs
	if s3 != nil {
		blobs = s3
	}
	return svcfile.New(blobs, svcfile.FromCentralConfig(cfg))
}

func ProvideUserService(
	db *repo.Client,
	hasher *password.Hasher,
	a audit.Service,
	n notification.Service,
	cfg *config.Config,
) user.Service {
	return user.New(db, hasher, a, n, user.Config{
		AppName:        constants.AppName,
		PhoneRegion:    cfg.Tickets.PhoneRegion,
		PasswordLength: cfg.Authentication.DefaultPasswordLength,
	})
}

func ProvideAuthService(
	db *repo.Client,
	sessions *redispkg.SessionStore,
	cache *redispkg.JSONCache[model.Profile],
	tokens *pasetotoken.Manager,
	hasher *password.Hasher,
	a audit.Service,
	cfg *config.Config,
) auth.Service {
	deps := auth.Deps{
		DB:       db,
		Sessions: sessions,
		Cache:    cache,
		Tokens:   tokens,
		Hasher:   hasher,
		Audit:    a,
		Config:   auth.FromCentralConfig(cfg),
	}
	if r := cfg.Authentication.Recovery; r.RESTURL != "" {
		timeout := time.Duration(r.WriteTimeoutSeconds) * time.Second
		deps.Recovery = auth.NewRESTWriter(r.RESTURL, r.RESTToken, timeout)
	}
	return auth.New(deps)
}

func ProvideTicketService(
	db *repo.Client,
	teams team.Service,
	a audit.Service,
	n notification.Service,
	bus events.Bus,
	files svcfile.Service,
	cfg *config.Config,
) ticket.Service {
	return ticket.New(ticket.Deps{
		DB:     db,
		Teams:  teams,
		Audit:  a,
		Notify: n,
		Bus:    bus,
		Photos: files,
		Config: ticket.FromCentralConfig(cfg),
	})
}
