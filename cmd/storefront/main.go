package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/tjper/storefront/cmd/storefront/config"
	"github.com/tjper/storefront/cmd/storefront/db"
	"github.com/tjper/storefront/cmd/storefront/page"
	"github.com/tjper/storefront/cmd/storefront/rest"
	"github.com/tjper/storefront/internal/docstore"
	"github.com/tjper/storefront/internal/email"
	igorm "github.com/tjper/storefront/internal/gorm"
	"github.com/tjper/storefront/internal/healthz"
	ihttp "github.com/tjper/storefront/internal/http"
	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/localstore"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/rand"
	"github.com/tjper/storefront/internal/redis"
	"github.com/tjper/storefront/internal/remoteconfig"
	istripe "github.com/tjper/storefront/internal/stripe"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

func main() {
	os.Exit(run())
}

const (
	ecExit = iota
	_
	ecDatabaseConnection
	ecMigration
	ecRedisConnection
	ecLocalStore
	ecServe
)

func run() int {
	// .env is optional; the environment always takes precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer stop()

	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("[Startup] Connecting to DB ...")
	dbconn, err := db.Open(logger, cfg.DSN())
	if err != nil {
		logger.Error("[Startup] Failed to initialize database connection.", zap.Error(err))
		return ecDatabaseConnection
	}
	logger.Info("[Startup] Connected to DB.")

	logger.Info("[Startup] Migrating DB ...")
	if err := db.Migrate(dbconn, cfg.Migrations()); err != nil {
		logger.Error("[Startup] Failed to migrate database model.", zap.Error(err))
		return ecMigration
	}
	logger.Info("[Startup] Migrated DB.")

	logger.Info("[Startup] Connecting to Redis ...")
	rdb := redisv8.NewClient(&redisv8.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword(),
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("[Startup] Failed to initialize Redis client.", zap.Error(err))
		return ecRedisConnection
	}
	logger.Info("[Startup] Connected to Redis.")

	logger.Info("[Startup] Opening local store ...")
	local, err := localstore.OpenSQLite(ctx, logger, cfg.LocalStoreDSN())
	if err != nil {
		logger.Error("[Startup] Failed to open local store.", zap.Error(err))
		return ecLocalStore
	}
	defer local.Close()
	logger.Info("[Startup] Opened local store.")

	iredis := redis.New(rdb)
	store := db.NewStore(logger, dbconn)
	docs := docstore.NewRedis(iredis, "storefront")

	stripe := &client.API{}
	stripe.Init(cfg.StripeKey(), nil)
	checkout := istripe.New(stripe.CheckoutSessions)

	mg := mailgun.NewMailgun(cfg.MailgunDomain(), cfg.MailgunAPIKey())
	emailer := email.NewMailgunEmailer(mg, cfg.MailgunHost())

	health := healthz.NewHTTP(
		healthz.WithProbe("redis", iredis.Ping),
		healthz.WithProbe("postgres", igorm.Ping(dbconn)),
	)

	var pageOptions []page.Option
	pageOptions = append(pageOptions, page.WithCheckoutExpiration(cfg.CheckoutExpiration()))
	if cfg.GoogleClientID() != "" {
		google := identity.NewGoogle(cfg.GoogleClientID(), cfg.GoogleSecret(), cfg.GoogleRedirectURL())
		pageOptions = append(pageOptions, page.WithPopupAuthenticator(identity.ProviderGoogle, google))
	}

	pages := page.NewServer(
		logger.Named("page"),
		remoteconfig.NewClient(
			logger.Named("remoteconfig"),
			cfg.ConfigURL(),
			func() (string, error) {
				return ihttp.IssueToken(cfg.ConfigSecret(), "storefront", time.Minute)
			},
			remoteconfig.WithCacheTTL(time.Minute),
		),
		store,
		docs,
		local,
		identity.NewRegistry(iredis, cfg.IdentityExpiration()),
		iredis,
		emailer,
		checkout,
		payment.NewClient(cfg.VerifyURL(), 10*time.Second),
		identity.NewLimiter(rate.Limit(cfg.SignInRate()), cfg.SignInBurst()),
		payment.URLs{Success: cfg.SuccessURL(), Cancel: cfg.CancelURL()},
		pageOptions...,
	)

	api := rest.NewAPI(
		logger,
		store,
		payment.NewStripeVerifier(checkout),
		pages,
		remoteconfig.Config{
			AdminEmail:       cfg.AdminEmail(),
			Currency:         cfg.Currency(),
			PaymentPublicKey: cfg.StripePublicKey(),
			StoreName:        cfg.StoreName(),
		},
		health,
		newBrowserID(logger),
		rest.Options{
			ConfigSecret: cfg.ConfigSecret(),
			Cookie: ihttp.CookieOptions{
				Domain:   cfg.CookieDomain(),
				Secure:   cfg.CookieSecure(),
				SameSite: cfg.CookieSameSite(),
			},
			AllowedOrigins: cfg.AllowedOrigins(),
		},
	)

	srv := http.Server{
		Handler:     api.Mux,
		Addr:        fmt.Sprintf(":%d", cfg.Port()),
		ReadTimeout: 10 * time.Second,
		// Pages are closed through the base context on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Sugar().Infof("[Startup] storefront API listening at :%d", cfg.Port())
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		health.Sick()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown; error: %w", err)
		}
		stop()
		pages.Wait()
		return nil
	})

	health.Healthy()
	if err := g.Wait(); err != nil {
		logger.Error("[Shutdown] storefront API stopped with error.", zap.Error(err))
		return ecServe
	}
	logger.Info("[Shutdown] storefront API stopped.")
	return ecExit
}

func newBrowserID(logger *zap.Logger) func() string {
	return func() string {
		id, err := rand.BrowserID()
		if err != nil {
			logger.Error("generate browser id", zap.Error(err))
			return ""
		}
		return id
	}
}
