package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/cart"
	"sickfits-be/internal/config"
	"sickfits-be/internal/db"
	"sickfits-be/internal/graph"
	"sickfits-be/internal/item"
	"sickfits-be/internal/jobs"
	"sickfits-be/internal/lock"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/mail"
	"sickfits-be/internal/metrics"
	"sickfits-be/internal/middleware"
	"sickfits-be/internal/order"
	"sickfits-be/internal/payment"
	"sickfits-be/internal/payment/webhook"
	"sickfits-be/internal/transport"
	"sickfits-be/internal/user"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

const limiterCleanupInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()
	if cfg.LogLevel != "" {
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			log.Warn("ignoring LOG_LEVEL", zap.String("value", cfg.LogLevel), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	locker, closeLocker := newLocker(ctx, cfg)
	defer closeLocker()

	a := newServer(cfg, database, locker, prometheus.NewRegistry())
	jobs.StartReconcileJob(ctx, cfg, a.orders)
	a.limiter.StartCleanup(ctx, limiterCleanupInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("graphql server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newLocker prefers Redis so checkout locks hold across replicas. Without a
// reachable Redis the lock only covers this process.
func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	log := logger.L()
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-process checkout locks")
		return lock.NewMemoryLocker(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis ping failed, using in-process checkout locks", zap.Error(err))
		_ = client.Close()
		return lock.NewMemoryLocker(), func() {}
	}

	return lock.NewRedisLocker(client), func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close error", zap.Error(err))
		}
	}
}

type app struct {
	router  http.Handler
	orders  order.Service
	limiter *middleware.Limiter
}

func newServer(cfg *config.Config, database *sql.DB, locker lock.Locker, reg *prometheus.Registry) *app {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(reg)

	signer := auth.NewSessionSigner(cfg.AppSecret, cfg.SessionTTL)
	cookie := transport.CookieOptions{
		Name:   auth.SessionCookieName,
		MaxAge: cfg.SessionTTL,
		Secure: cfg.CookieSecure,
	}

	var mailer mail.Sender = mail.LogSender{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}

	userSvc := user.NewService(user.NewRepository(database), signer, mailer, cfg.FrontendURL)
	itemSvc := item.NewService(item.NewRepository(database))
	cartSvc := cart.NewService(cart.NewRepository(database))

	paymentRepo := payment.NewRepository(database)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeBaseURL)
	orderSvc := order.NewService(order.NewRepository(database), cartSvc, gateway, locker, recorder)

	resolver := &graph.Resolver{
		UserSvc:  userSvc,
		ItemSvc:  itemSvc,
		CartSvc:  cartSvc,
		OrderSvc: orderSvc,
		Cookie:   cookie,
	}

	var webhookHandler http.HandlerFunc
	if cfg.StripeWebhookSecret != "" {
		webhookHandler = webhook.NewWebhookHandler(orderSvc, paymentRepo, cfg.StripeWebhookSecret).PaymentWebhookHandler
	} else {
		logger.L().Warn("STRIPE_WEBHOOK_SECRET not set, payment webhook disabled")
	}

	limiter := middleware.NewLimiter(cfg.InternalSecretKey)

	router := setupRouter(
		graph.NewServer(graph.NewSchema(resolver)),
		webhookHandler,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		logger.RequestIDMiddleware,
		logger.LoggingMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.FrontendURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Session(signer, userSvc, cookie),
		limiter.Middleware,
	)

	return &app{router: router, orders: orderSvc, limiter: limiter}
}

// setupRouter mounts the HTTP surface. paymentWebhook may be nil, in which case the
// route is not registered.
func setupRouter(
	gql http.Handler,
	paymentWebhook http.HandlerFunc,
	metricsHandler http.Handler,
	mws ...func(http.Handler) http.Handler,
) chi.Router {
	r := chi.NewRouter()
	r.Use(mws...)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metricsHandler)

	r.Get("/", playground.Handler("Sick Fits", "/graphql"))
	r.Get("/schema.graphql", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(graph.SchemaSDL))
	})
	r.Handle("/graphql", gql)

	if paymentWebhook != nil {
		r.Post(middleware.WebhookPath, paymentWebhook)
	}

	return r
}
