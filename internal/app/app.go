// Package app builds the object graph shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/8adimka/Go_Weather_Assistant/internal/agents"
	"github.com/8adimka/Go_Weather_Assistant/internal/chat/model"
	"github.com/8adimka/Go_Weather_Assistant/internal/circuitbreaker"
	"github.com/8adimka/Go_Weather_Assistant/internal/config"
	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
	"github.com/8adimka/Go_Weather_Assistant/internal/geo"
	"github.com/8adimka/Go_Weather_Assistant/internal/health"
	"github.com/8adimka/Go_Weather_Assistant/internal/llm"
	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
	"github.com/8adimka/Go_Weather_Assistant/internal/mongox"
	"github.com/8adimka/Go_Weather_Assistant/internal/otel"
	"github.com/8adimka/Go_Weather_Assistant/internal/redisx"
	"github.com/8adimka/Go_Weather_Assistant/internal/retry"
	"github.com/8adimka/Go_Weather_Assistant/internal/team"
	"github.com/8adimka/Go_Weather_Assistant/internal/tokens"
	"github.com/8adimka/Go_Weather_Assistant/internal/tools/factory"
	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
	weathertool "github.com/8adimka/Go_Weather_Assistant/internal/tools/weather"
	"github.com/8adimka/Go_Weather_Assistant/internal/weather"
)

// Options tunes New.
type Options struct {
	// Trace observes every coordinator decision of both teams.
	Trace team.Trace
	// Model replaces the OpenAI adapter, mainly in tests.
	Model llm.ChatModel
}

// App holds the wired components.
type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Surface *weathertool.Surface
	Tools   *registry.ToolRegistry
	Prompts *agents.PromptManager
	Team    *team.Team
	Single  *team.Team
	Repo    *model.Repository
	Health  *health.HealthChecker

	redis *redis.Client
	mongo *mongo.Database
}

// New connects the optional stores and builds both teams. Redis and MongoDB
// are used only when configured; a configured store that cannot be reached
// is an error.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, opts Options) (*App, error) {
	a := &App{Config: cfg, Metrics: m, Health: health.NewHealthChecker()}

	if cfg.RedisAddr != "" {
		client, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.Health.AddCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}
	if cfg.MongoURI != "" {
		db, err := mongox.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.mongo = db
		a.Repo = model.New(db)
		if err := a.Repo.EnsureIndexes(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to ensure conversation indexes", "error", err)
		}
		a.Health.AddCheck("mongodb", mongox.Ping(db))
	}

	a.Surface = weathertool.NewSurface(a.geocoder(), a.forecasts(), m)
	a.Tools = factory.NewFactory(a.Surface).CreateAllTools()

	var promptCache *redisx.Cache
	if a.redis != nil {
		promptCache = redisx.NewCache(a.redis, "prompt", cfg.PromptCacheTTL)
	}
	a.Prompts = agents.NewPromptManager(promptCache, a.mongo)
	if err := a.Prompts.InitializePrompts(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to initialize prompts, built-in defaults stay in use", "error", err)
	}

	chat := opts.Model
	if chat == nil {
		chat = llm.NewOpenAIModel(cfg.OpenAIApiKey, cfg.OpenAIBaseURL, cfg.OpenAIModel,
			llm.WithRetry(retry.FromConfig(cfg)),
			llm.WithMetrics(m),
			llm.WithTokenEstimator(tokens.NewTokenCounter(), cfg.MaxContextTokens),
		)
	}

	var err error
	a.Team, err = a.newTeam(team.DefaultConfig(), agents.TeamStages(chat, a.Prompts, a.Tools), opts.Trace)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Single, err = a.newTeam(team.SingleStageConfig(team.SingleAgent),
		[]team.Stage{agents.NewWeatherBot(chat, a.Prompts, a.Tools)}, opts.Trace)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Runner returns the team for mode.
func (a *App) Runner(mode model.Mode) *team.Team {
	if mode == model.ModeSingle {
		return a.Single
	}
	return a.Team
}

func (a *App) newTeam(cc team.Config, stages []team.Stage, trace team.Trace) (*team.Team, error) {
	cc.TerminationPhrase = a.Config.TerminationPhrase
	cc.MaxMessages = a.Config.MaxMessages

	var copts []team.CoordinatorOption
	if trace != nil {
		copts = append(copts, team.WithTrace(trace))
	}
	return team.New(team.NewCoordinator(cc, copts...), stages,
		team.WithMetrics(a.Metrics),
		team.WithTracer(otel.Tracer()),
	)
}

func (a *App) geocoder() *geo.Geocoder {
	amap := geo.NewAmapClient(a.Config.AmapApiKey, a.Config.AmapBaseURL,
		geo.WithBreaker(a.breaker("amap")))

	var cache geo.CoordinateCache = geo.NewMemoryCache()
	if a.Config.SharedGeocodeCache && a.redis != nil {
		cache = geo.NewRedisCache(redisx.NewCache(a.redis, "geocode", 0))
	}
	return geo.NewGeocoder(amap, geo.WithCache(cache), geo.WithMetrics(a.Metrics))
}

func (a *App) forecasts() weather.Provider {
	client := weather.NewCaiyunClient(a.Config.CaiyunApiKey, a.Config.CaiyunBaseURL,
		weather.WithRateLimit(a.Config.ForecastRatePerSec, 1),
		weather.WithBreaker(a.breaker("caiyun")),
		weather.WithMetrics(a.Metrics),
	)

	var cache *redisx.Cache
	if a.redis != nil && a.Config.ForecastCacheTTL > 0 {
		cache = redisx.NewCache(a.redis, "forecast", a.Config.ForecastCacheTTL)
	}
	return weather.NewService(client, cache)
}

// breaker trips on upstream failures only. A city the upstream does not
// know is a valid answer.
func (a *App) breaker(name string) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:           name,
		MaxFailures:    5,
		CooldownPeriod: 30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !errorsx.IsNotFound(err) && !errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			a.Metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
		},
	})
}

// Close releases the store connections.
func (a *App) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.WarnContext(ctx, "Failed to close Redis client", "error", err)
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Client().Disconnect(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to disconnect MongoDB", "error", err)
		}
	}
}
