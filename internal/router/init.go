package router

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ramadhanik/account-service/config"
	"github.com/ramadhanik/account-service/internal/application"
	pginfra "github.com/ramadhanik/account-service/internal/infrastructure/postgres"
	handlers "github.com/ramadhanik/account-service/internal/interface/http"
	"github.com/ramadhanik/account-service/internal/router/modules"
	"github.com/ramadhanik/account-service/pkg/helpers"
	"github.com/ramadhanik/account-service/pkg/resettoken"
)

// Deps carries the process-wide collaborators main constructs once. Modules
// receive them explicitly; there is no package-level container.
type Deps struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	Pool   *pgxpool.Pool
	RDB    *redis.Client
	JWT    *helpers.JWTManager
	Pub    application.Publisher
	ES     *elasticsearch.Client
}

// InitModules builds the account module from Deps and adds it to the registry.
func InitModules(r *Registry, d Deps) {
	repo := pginfra.NewAccountRepository(d.Pool)
	reset := resettoken.NewGenerator(d.Cfg.ResetTokenSecret, d.Cfg.ResetTokenTTL)

	service := application.NewService(
		repo,
		d.JWT,
		reset,
		d.Pub,
		d.Logger,
		d.ES,
		d.Cfg.ESAccountsIndex,
		d.Cfg.ResetURLBase,
		d.Cfg.MailSendEnabled,
	)

	handler := handlers.NewAccountHandler(service, d.Logger)
	r.Add(modules.NewAccountModule(handler, d.JWT, d.RDB))
}
