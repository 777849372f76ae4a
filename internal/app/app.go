// Package app wires the shop bot together: configuration, infrastructure
// from core, and the order domain packages.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	corebootstrap "github.com/fasters/starshop/core/bootstrap"
	coretelegram "github.com/fasters/starshop/core/telegram"
	"github.com/fasters/starshop/core/telegram/commands"
	"github.com/fasters/starshop/core/telegram/router"
	"github.com/fasters/starshop/core/telegram/state"
	"github.com/fasters/starshop/internal/approval"
	"github.com/fasters/starshop/internal/archive"
	"github.com/fasters/starshop/internal/flow"
	"github.com/fasters/starshop/internal/health"
	"github.com/fasters/starshop/internal/orders"
	"github.com/fasters/starshop/internal/pricing"
)

// App is the composed shop bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	states   state.Manager
	registry *orders.Registry
	flow     *flow.Flow
	approval *approval.Workflow
	health   *health.Server
}

// Bootstrap initializes infrastructure and composes the domain services.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:       &cfg.Core,
		Database:     cfg.Database,
		SkipDatabase: !cfg.Archive.Enabled,
	})
	if err != nil {
		return nil, err
	}

	var arch approval.Archive = archive.Nop{}
	if res.DB != nil {
		arch = archive.NewPostgres(res.DB)
	}

	wf := approval.New(approval.Config{
		AdminChatID: cfg.Shop.AdminChatID,
		GroupChatID: cfg.Shop.AdminGroupID,
	}, arch)

	registry := orders.NewRegistry()
	pricer := pricing.NewEngine(pricing.Config{
		MinQuantity: cfg.Shop.MinQuantity,
		MaxQuantity: cfg.Shop.MaxQuantity,
		Commission:  cfg.Shop.Commission,
	})
	states := state.NewMemoryManager()

	return &App{
		cfg:      cfg,
		db:       res.DB,
		states:   states,
		registry: registry,
		flow: flow.New(states, registry, pricer, wf, flow.Config{
			QuantityOptions:   cfg.Shop.QuantityOptions,
			ReviewsURL:        cfg.Shop.ReviewsURL,
			PaymentContactURL: cfg.Shop.PaymentContactURL,
		}),
		approval: wf,
		health:   health.New(cfg.Health.Port),
	}, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Главное меню",
	})
	reg.RegisterCommand("/order", commands.Command{
		Handler:     a.handleOrder,
		Description: "Сделать заказ",
		Aliases:     []string{flow.LabelMakeOrder},
	})
	reg.RegisterCommand("/reviews", commands.Command{
		Handler:     a.handleReviews,
		Description: "Отзывы",
		Aliases:     []string{flow.LabelShowReviews},
	})

	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	a.registerStates()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.states, reg, router.TextOptions{
		UnknownText: a.handleStart,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.approval.SetPoster(newBotPoster(rt.Bot))
			a.health.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			if err := a.health.Shutdown(ctx); err != nil {
				return err
			}
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}
