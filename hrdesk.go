// Package hrdesk wires the company assistant: chat flow, dynamic forms,
// ticket storage and the HTTP server.
package hrdesk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/config"
	"github.com/tbxark/hrdesk/render"
	"github.com/tbxark/hrdesk/server"
	"github.com/tbxark/hrdesk/store"
	"github.com/tbxark/hrdesk/ticket"
)

const (
	AgentName        = "CompanyAssistant"
	AgentDescription = "Helps employees with leave, salary and complaint requests and files support tickets"

	cacheTTL = 7 * 24 * time.Hour
)

// Version is set at build time.
var Version = "dev"

type App struct {
	Config   *config.Config
	DB       *sql.DB
	Redis    *redis.Client
	Registry *prometheus.Registry

	Messages *store.MessageStore
	Tickets  *ticket.Service
	Flow     *agent.Flow
	Renderer *render.Renderer
	Server   *server.Server
}

type Option func(*options)

type options struct {
	chatModel model.ToolCallingChatModel
	registry  *prometheus.Registry
}

// WithChatModel uses chatModel instead of building one from the config.
func WithChatModel(chatModel model.ToolCallingChatModel) Option {
	return func(o *options) {
		o.chatModel = chatModel
	}
}

func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// NewChatModel connects to the OpenAI compatible endpoint in cfg.
func NewChatModel(ctx context.Context, cfg *config.Config) (*openai.ChatModel, error) {
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	app := &App{Config: cfg, Registry: o.registry}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.DB = db
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.Messages = store.NewMessageStore(db)
	app.Tickets = ticket.NewService(store.NewTicketStore(db))

	sessions, history, err := app.caches(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case o.chatModel != nil:
		app.Flow, err = agent.NewToolBasedFlow(o.chatModel, app.Tickets, sessions, history)
	case cfg.Offline:
		slog.Info("offline mode, model calls disabled")
		app.Flow, err = agent.NewLocalFlow(app.Tickets, sessions, history)
	default:
		var cm *openai.ChatModel
		cm, err = NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		app.Flow, err = agent.NewToolBasedFlow(cm, app.Tickets, sessions, history)
	}
	if err != nil {
		return nil, err
	}

	themes, err := render.NewThemes(cfg.ThemeVariant)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	app.Renderer, err = render.New(themes)
	if err != nil {
		return nil, err
	}
	app.Server, err = server.New(app.Flow, app.Messages, app.Renderer, app.Registry,
		server.WithConversationID(cfg.ConversationID),
		server.WithVariant(cfg.ThemeVariant),
	)
	if err != nil {
		return nil, err
	}
	ok = true
	return app, nil
}

// caches keeps form sessions and chat history in Redis when configured and in
// process memory otherwise.
func (a *App) caches(ctx context.Context) (*agent.SessionStore, *agent.HistoryStore, error) {
	trimmer := agent.KeepSystemLastNTrimmer{N: a.Config.HistoryLimit}
	if a.Config.RedisAddr == "" {
		sessions := agent.NewSessionStore(agent.NewExpiringMemoryCache[*agent.Session](cacheTTL, nil))
		history := agent.NewHistoryStore(agent.NewExpiringMemoryCache[[]*schema.Message](cacheTTL, nil), trimmer)
		return sessions, history, nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr, DB: a.Config.RedisDB})
	a.Redis = client
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("connect redis %s: %w", a.Config.RedisAddr, err)
	}
	slog.Info("using redis cache", "addr", a.Config.RedisAddr, "db", a.Config.RedisDB)
	sessions := agent.NewSessionStore(agent.NewRedisCache[*agent.Session](client, "", cacheTTL))
	history := agent.NewHistoryStore(agent.NewRedisCache[[]*schema.Message](client, "", cacheTTL), trimmer)
	return sessions, history, nil
}

// NewAgent exposes the flow to adk runners.
func (a *App) NewAgent() *agent.Agent {
	return agent.NewAgent(AgentName, AgentDescription, a.Flow)
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
