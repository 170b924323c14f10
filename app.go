// Package pressroom wires the content-management core: repositories,
// credential engine, role authority and access gate over one database
// handle. A transport layer embeds App and maps its typed errors onto
// whatever protocol it speaks.
package pressroom

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ndemidenko/pressroom/internal/config"
	"github.com/ndemidenko/pressroom/internal/db"
	"github.com/ndemidenko/pressroom/internal/events"
	"github.com/ndemidenko/pressroom/internal/logging"
	"github.com/ndemidenko/pressroom/internal/repo"
	"github.com/ndemidenko/pressroom/internal/search"
	"github.com/ndemidenko/pressroom/internal/service"
)

type App struct {
	Users      *repo.UserRepo
	Categories *repo.CategoryRepo
	Posts      *repo.PostRepo
	Tokens     *service.TokenService
	Roles      *service.RoleService
	Gate       *service.Gate
	Auth       *service.AuthService

	Log      *slog.Logger
	producer *events.Producer
}

// New connects to the database, brings the schema up to date and wires
// every component. Kafka and Elasticsearch are optional: an empty
// address in the config leaves the corresponding integration off.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LOG_LEVEL)

	database, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Init(ctx, database, cfg); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer(cfg.KAFKA_ADDRESS)
	}

	var index *search.PostIndex
	if cfg.ES_URL != "" {
		client, err := search.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect elasticsearch: %w", err)
		}
		index = search.NewPostIndex(client)
	}

	app := &App{Log: logger, producer: producer}
	app.Users = &repo.UserRepo{DB: database, BcryptCost: cfg.BcryptCost}
	app.Categories = &repo.CategoryRepo{DB: database, Log: logger}
	app.Posts = &repo.PostRepo{DB: database, Index: index, Log: logger}
	if producer != nil {
		app.Categories.Events = producer
		app.Posts.Events = producer
	}

	app.Tokens = &service.TokenService{
		Users:  app.Users,
		Secret: []byte(cfg.JWT_SECRET),
		TTL:    cfg.TokenTTL,
	}
	app.Roles = &service.RoleService{Users: app.Users}
	app.Gate = &service.Gate{Roles: app.Roles}
	app.Auth = &service.AuthService{Users: app.Users, Tokens: app.Tokens, Log: logger}
	if producer != nil {
		app.Auth.Events = producer
	}

	return app, nil
}

func (a *App) Close() error {
	if a.producer != nil {
		return a.producer.Close()
	}
	return nil
}
