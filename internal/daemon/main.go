// Package daemon wires the portal together: database, migrations, seed data,
// session storage and the web service.
package daemon

import (
	"fmt"

	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/dsn"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/web"
	"github.com/glasspane/glasspane/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go d.webService.WaitShutdown()

	return d.webService.Start(addr)
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	var dialector gorm.Dialector

	connectionURI := dsn.Create(cfg)

	if cfg.DB.Engine == config.DBEnginePostgres {
		dialector = gormpostgres.Open(connectionURI)
	} else {
		dialector = gormmysql.Open(connectionURI)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Role{},
		&models.RoleMapping{},
		&models.Site{},
		&models.GroupSiteMap{},
		&models.AuditLog{},
		&models.DirectoryConfig{},
		&models.WebAppConfig{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	session.Init(newSessionStorage(cfg, connectionURI))

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db),
	}
}

// newSessionStorage opens the session backend on the same database engine as
// the primary store.
func newSessionStorage(cfg *config.Config, connectionURI string) storage.Storage {
	if cfg.DB.Engine == config.DBEnginePostgres {
		return sessionpostgres.New(sessionpostgres.Config{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			Username: cfg.DB.User,
			Password: cfg.DB.Password,
			Database: cfg.DB.Name,
			Table:    "sessions",
		})
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: connectionURI,
		Table:         "sessions",
	})
}
