package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/logibot/app/flows"
	"github.com/m3rciful/logibot/auth"
	"github.com/m3rciful/logibot/core/bootstrap"
	corecmd "github.com/m3rciful/logibot/core/cmd"
	coretelegram "github.com/m3rciful/logibot/core/telegram"
	"github.com/m3rciful/logibot/core/telegram/router"
	"github.com/m3rciful/logibot/flow"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
)

// App is the assembled bot: storage, sessions, auth and dialog flows.
type App struct {
	cfg *Config
	db  *sqlx.DB

	sessions *session.Store
	sweeper  *session.Sweeper
	locks    *session.KeyedMutex

	customers *storage.CustomerRepo
	vehicles  *storage.VehicleRepo
	orders    *storage.OrderRepo
	admins    *storage.AdminRepo

	authSvc   *auth.Service
	adminGate *auth.AdminGate

	registration  *flow.Engine[flows.RegistrationData]
	login         *flow.Engine[flows.LoginData]
	adminLogin    *flow.Engine[flows.AdminLoginData]
	orderCreation *flow.Engine[flows.OrderData]
}

// Bootstrap initializes infrastructure and assembles the application.
// It satisfies corecmd.Options.Bootstrap.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	return assemble(cfg, res.DB), nil
}

// assemble wires the application on top of an established DB connection.
func assemble(cfg *Config, db *sqlx.DB) *App {
	a := &App{
		cfg:      cfg,
		db:       db,
		sessions: session.NewStore(nil),
		locks:    session.NewKeyedMutex(),
	}
	a.sweeper = session.NewSweeper(a.sessions, cfg.Session.IdleTimeout(), cfg.Session.SweepInterval())

	a.customers = storage.NewCustomerRepo(db)
	a.vehicles = storage.NewVehicleRepo(db)
	a.orders = storage.NewOrderRepo(db)
	a.admins = storage.NewAdminRepo(db)

	hasher := auth.NewHasher()
	a.authSvc = auth.NewService(a.sessions, a.customers, hasher)
	a.adminGate = auth.NewAdminGate(a.admins, hasher)

	a.registration = flows.NewRegistration(a.customers, hasher)
	a.login = flows.NewLogin(a.authSvc, a.customers, a.sessions)
	a.adminLogin = flows.NewAdminLogin(a.adminGate)
	a.orderCreation = flows.NewOrderCreation(a.vehicles, a.orders, a.authSvc, time.Now)

	return a
}

// TelegramRunOptions builds the bot runtime options: commands, routes,
// middleware chain and the session sweeper lifecycle.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := a.cfg.CoreConfig()

	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	reg.SetTextFallback(a.handleUnknownText)

	routes := router.TextRoutes(a.locks, a, reg, router.TextOptions{
		UnknownText: a.handleUnknownText,
	})

	return coretelegram.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.sweeper.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			a.sweeper.Stop()
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}

// idleTimeout is the configured session idle timeout.
func (a *App) idleTimeout() time.Duration {
	return a.cfg.Session.IdleTimeout()
}
