package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/paygate/internal/db"
	"github.com/dmitrymomot/paygate/modules/billing"
	"github.com/dmitrymomot/paygate/pkg/clientip"
	"github.com/dmitrymomot/paygate/pkg/config"
	"github.com/dmitrymomot/paygate/pkg/correlation"
	"github.com/dmitrymomot/paygate/pkg/email"
	"github.com/dmitrymomot/paygate/pkg/environment"
	"github.com/dmitrymomot/paygate/pkg/httpserver"
	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/mercadopago"
	"github.com/dmitrymomot/paygate/pkg/pg"
	"github.com/dmitrymomot/paygate/pkg/redis"
	"github.com/dmitrymomot/paygate/pkg/requestid"
	"github.com/dmitrymomot/paygate/pkg/subscription"
	"github.com/dmitrymomot/paygate/svc/auth"
	"github.com/dmitrymomot/paygate/svc/notify"
)

const serviceName = "paygate"

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	// CorrelationSecret signs the external_reference sent to the provider.
	CorrelationSecret string `env:"CHECKOUT_REFERENCE_SECRET,required"`
	// PlansFile optionally points at a YAML catalogue applied at startup.
	PlansFile string `env:"PLANS_FILE"`

	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"true"`

	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"24h"`
	ReminderWithin   time.Duration `env:"REMINDER_WITHIN" envDefault:"168h"`
	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"3s"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		appCfg     appConfig
		logCfg     logger.Config
		pgCfg      pg.Config
		redisCfg   redis.Config
		mpCfg      mercadopago.Config
		emailCfg   email.Config
		notifyCfg  notify.Config
		billingCfg billing.Config
		httpCfg    httpserver.Config
	)
	if err := errors.Join(
		config.Load(&appCfg),
		config.Load(&logCfg),
		config.Load(&pgCfg),
		config.Load(&redisCfg),
		config.Load(&mpCfg),
		config.Load(&emailCfg),
		config.Load(&notifyCfg),
		config.Load(&billingCfg),
		config.Load(&httpCfg),
	); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := environment.Parse(appCfg.Env)
	logOpts := append([]logger.Option{
		logger.WithEnvironment(env, serviceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			auth.LoggerExtractor(),
		),
	}, logCfg.Options()...)
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, pgCfg, log.With(logger.Component("migrations"))); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := db.NewStore(pool)

	provider, err := mercadopago.NewClient(mpCfg, mercadopago.WithLogger(log.With(logger.Component("mercadopago"))))
	if err != nil {
		return fmt.Errorf("mercadopago client: %w", err)
	}

	codec, err := correlation.NewCodec(appCfg.CorrelationSecret)
	if err != nil {
		return fmt.Errorf("correlation codec: %w", err)
	}

	sender, err := email.New(emailCfg)
	if err != nil {
		return fmt.Errorf("email sender: %w", err)
	}
	if !emailCfg.Enabled() {
		log.Warn("postmark not configured, e-mails are written to disk", slog.String("dir", emailCfg.DevOutputDir))
	}

	svcOpts := []subscription.ServiceOption{
		subscription.WithLogger(log.With(logger.Component("subscription"))),
		subscription.WithNotifier(notify.NewMailer(sender, notifyCfg)),
		subscription.WithCheckoutConfig(subscription.CheckoutConfig{
			AppURL:           billingCfg.AppURL,
			BackPath:         billingCfg.PricingPath,
			NotificationPath: billingCfg.WebhookPath,
			Currency:         mpCfg.Currency,
			Sandbox:          mpCfg.Sandbox || env.IsSandbox(),
			TestPayerEmail:   mpCfg.TestPayerEmail,
			SubscriptionsURL: mpCfg.SubscriptionsURL,
		}),
	}

	checks := map[string]httpserver.Check{
		"postgres": pg.Healthcheck(pool),
	}

	if appCfg.RedisEnabled {
		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		svcOpts = append(svcOpts,
			subscription.WithLocker(redis.NewLocker(rdb, redisCfg.KeyPrefix), redisCfg.LockTTL),
			subscription.WithDeduper(redis.NewDeduper(rdb, redisCfg.KeyPrefix, redisCfg.DedupeTTL)),
		)
		checks["redis"] = redis.Healthcheck(rdb)
	} else {
		log.Warn("redis disabled, webhook deliveries are serialised per process only")
	}

	svc := subscription.NewService(store, provider, codec, svcOpts...)

	if appCfg.PlansFile != "" {
		if err := seedPlans(ctx, svc, appCfg.PlansFile); err != nil {
			return err
		}
		log.Info("plans catalogue applied", slog.String("file", appCfg.PlansFile))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	billingModule := billing.NewModule(billingCfg, svc,
		mercadopago.NewSignatureVerifier(mpCfg.WebhookSecret, mpCfg.SignatureTolerance),
		billing.WithLogger(log.With(logger.Component("billing"))),
		billing.WithMetrics(billing.NewMetrics(reg)),
	)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware(clientip.DefaultHeaders...),
		environment.Middleware(env),
		auth.Middleware(auth.WithUserSyncer(store), auth.WithLogger(log)),
	)
	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, appCfg.ReadinessTimeout, checks))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/", billingModule.Handle())

	go remindExpiring(ctx, svc, appCfg.ReminderInterval, appCfg.ReminderWithin, log.With(logger.Component("reminders")))

	server := httpserver.New(httpCfg, httpserver.WithLogger(log))
	return server.Run(ctx, r)
}

func seedPlans(ctx context.Context, svc subscription.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open plans file: %w", err)
	}
	defer f.Close()

	plans, err := subscription.LoadPlansYAML(f)
	if err != nil {
		return fmt.Errorf("parse plans file: %w", err)
	}
	if err := svc.SeedPlans(ctx, plans); err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	return nil
}

// remindExpiring sends expiry reminders once per interval. Each run only
// covers end dates in the last interval-wide slice of the window.
func remindExpiring(ctx context.Context, svc subscription.Service, interval, within time.Duration, log *slog.Logger) {
	if interval <= 0 {
		log.Info("expiry reminders disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := svc.RemindExpiring(ctx, within, interval)
			if err != nil {
				log.ErrorContext(ctx, "expiry reminders failed", logger.Error(err))
				continue
			}
			if sent > 0 {
				log.InfoContext(ctx, "expiry reminders sent", slog.Int("count", sent))
			}
		}
	}
}
