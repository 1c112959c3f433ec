package router

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-user-service/internal/application/command"
	"github.com/oksasatya/go-ddd-user-service/internal/application/integration"
	"github.com/oksasatya/go-ddd-user-service/internal/application/query"
	"github.com/oksasatya/go-ddd-user-service/internal/container"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
	pginfra "github.com/oksasatya/go-ddd-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-ddd-user-service/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-service/internal/router/modules"
)

var errSearchUnavailable = errs.Internal("Search.Unavailable", errors.New("elasticsearch is not configured"))

type UserModuleDeps struct {
	Commands *command.Handlers
	Handler  *handlers.UserHandler
	Auth     *handlers.AuthHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()
	cache := container.GetCache()
	codec := pginfra.NewEventCodec()

	users := pginfra.NewUserRepository(pool, codec)
	commands := command.NewHandlers(
		pginfra.NewTxRunner(pool, codec),
		users,
		integration.NewMapper(cfg.AppName, integration.DefaultRegistry()),
		container.GetJWT(),
		logger,
	)

	var searchHandler query.Handler[query.SearchUsers, []query.UserView]
	if es := container.GetES(); es != nil {
		searchHandler = query.NewSearchUsersHandler(search.NewIndex(es, cfg.ESUsersIndex))
	} else {
		searchHandler = query.HandlerFunc[query.SearchUsers, []query.UserView](func(context.Context, query.SearchUsers) ([]query.UserView, error) {
			return nil, errSearchUnavailable
		})
	}

	queries := handlers.UserQueries{
		ByID:   query.NewCached(query.NewGetUserByIDHandler(pginfra.NewProjectionStore(pool)), cache, logger),
		List:   query.NewCached(query.NewListUsersHandler(users), cache, logger),
		Search: query.NewCached(searchHandler, cache, logger),
	}

	handler := handlers.NewUserHandler(commands, queries, container.GetValidator(), logger)
	return UserModuleDeps{
		Commands: commands,
		Handler:  handler,
		Auth:     handlers.NewAuthHandler(handler),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	var allow middleware.AllowFunc
	if cfg.RateLimitTrustPrivate {
		allow = middleware.AllowPrivateIP()
	}

	r.Check("postgres", container.GetPGPool().Ping)
	r.Check("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	userDeps := buildUserDeps()
	r.Add(modules.NewAuthModule(userDeps.Auth, rdb, allow))
	r.Add(modules.NewUserModule(userDeps.Handler, container.GetJWT(), rdb, cfg.RateLimitPerMin, allow))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb, container.GetCache()))
	}
}
