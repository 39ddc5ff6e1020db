package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/action"
	"price-oracle-dashboard/internal/bot"
	"price-oracle-dashboard/internal/cache"
	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/config"
	"price-oracle-dashboard/internal/db"
	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/events"
	"price-oracle-dashboard/internal/handler"
	"price-oracle-dashboard/internal/job"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/market"
	"price-oracle-dashboard/internal/metrics"
	"price-oracle-dashboard/internal/oracle"
	"price-oracle-dashboard/internal/provider"
	"price-oracle-dashboard/internal/repository"
	"price-oracle-dashboard/internal/service"
	"price-oracle-dashboard/pkg/tracing"

	_ "price-oracle-dashboard/docs"
)

const serviceName = "price-oracle-dashboard"

var (
	loadEnvFunc           = godotenv.Load
	loadConfigFunc        = config.Load
	initPostgresFunc      = db.InitPostgres
	initRedisFunc         = cache.InitRedis
	initTracerFunc        = tracing.InitTracer
	dialChainFunc         = chain.Dial
	newSignerFunc         = chain.NewSigner
	newMarketProviderFunc = func(tracer trace.Tracer, baseURL string) market.Provider {
		return provider.NewCoinGeckoProvider(tracer, baseURL)
	}
	startPollerFunc        = func(p *job.Poller, ctx context.Context) { go p.Start(ctx) }
	startWatcherFunc       = func(w *events.Watcher, ctx context.Context) error { return w.Run(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }

	chainRetryDelay    = 5 * time.Second
	maxChainRetryDelay = 5 * time.Minute
)

// chainDeps holds the contract views handed to readers and writers.
type chainDeps struct {
	oracle  oracle.Contract
	actions action.Contract
	events  events.Source
	signer  chain.Signer
	close   func()
}

// configMismatch reports errors that retrying cannot fix.
func configMismatch(err error) bool {
	return errors.Is(err, chain.ErrWrongChain) || errors.Is(err, chain.ErrNoContract)
}

// connectChain dials the node and builds the signer. A signer failure only
// disables writes.
func connectChain(ctx context.Context, cfg *config.Config, log *logger.Entry) (chainDeps, error) {
	deps := chainDeps{close: func() {}}
	client, err := dialChainFunc(ctx, chain.Config{
		RPCURL:          cfg.RPCURL,
		ChainID:         cfg.ChainID,
		ContractAddress: cfg.ContractAddress,
		PriceDecimals:   cfg.PriceDecimals,
		DisplayDecimals: cfg.DisplayDecimals,
	})
	if err != nil {
		return deps, err
	}
	o := client.Oracle()
	deps.oracle, deps.actions, deps.events = o, o, o
	deps.close = client.Close

	signer, err := newSignerFunc(chain.SignerConfig{
		Kind:       cfg.SignerKind,
		PrivateKey: cfg.SignerPrivateKey,
		Endpoint:   cfg.SignerEndpoint,
	}, client.ChainID())
	if err != nil {
		log.WithError(err).Warn("signer unavailable, write actions disabled")
		return deps, nil
	}
	if signer != nil {
		deps.signer = signer
		log.WithField("address", signer.Address().Hex()).Info("signer ready")
	}
	return deps, nil
}

// redialChain retries connectChain with exponential backoff. It returns an
// error only for a configuration mismatch.
func redialChain(ctx context.Context, cfg *config.Config, log *logger.Entry, attach func(chainDeps)) error {
	delay := chainRetryDelay
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		deps, err := connectChain(ctx, cfg, log)
		if err == nil {
			log.Info("chain reconnected")
			attach(deps)
			return nil
		}
		if configMismatch(err) {
			return err
		}
		delay *= 2
		if delay > maxChainRetryDelay {
			delay = maxChainRetryDelay
		}
		log.WithError(err).WithField("retry_in", delay.String()).Warn("chain still unreachable")
	}
}

// stores returns Postgres backed stores when the pool is up, otherwise an
// in-memory intent store and no event store.
func stores(ctx context.Context, tracer trace.Tracer, log *logger.Entry) (action.IntentStore, events.Store) {
	if db.Pool == nil {
		return action.NewMemoryStore(100), nil
	}
	intentRepo := repository.NewIntentRepository(db.Pool, tracer)
	eventRepo := repository.NewThresholdEventRepository(db.Pool, tracer)
	if err := intentRepo.RunMigrations(ctx); err != nil {
		log.WithError(err).Error("intent migrations failed, keeping intents in memory")
		return action.NewMemoryStore(100), nil
	}
	if err := eventRepo.RunMigrations(ctx); err != nil {
		log.WithError(err).Error("event migrations failed, events will not be persisted")
		return intentRepo, nil
	}
	return intentRepo, eventRepo
}

// @title           Price Oracle Dashboard API
// @version         1.0
// @description     Reconciled on-chain oracle and market prices, threshold events and contract actions.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	if err := logger.L().Configure(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, cfg.LogMaxAgeDays); err != nil {
		logger.L().WithComponent("server").WithError(err).Warn("invalid logging config, keeping defaults")
	}
	log := logger.L().WithComponent("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil && !errors.Is(err, db.ErrNoDSN) {
		log.WithError(err).Warn("postgres unavailable, intents and events kept in memory")
	}
	defer db.Close()
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.WithError(err).Warn("redis unavailable, views will not be shared with other processes")
	}

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.WithError(err).Error("failed to initialize tracer")
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("error shutting down tracer provider")
		}
	}()

	m := metrics.New()
	intentStore, eventStore := stores(ctx, tracer, log)

	deps, err := connectChain(ctx, cfg, log)
	if err != nil {
		if configMismatch(err) {
			log.WithError(err).Error("chain configuration mismatch, check CHAIN_ID and CONTRACT_ADDRESS")
			return
		}
		log.WithError(err).Error("chain unavailable, oracle prices degraded until it reconnects")
	}

	var chainMu sync.Mutex
	closeChain := func() {}
	defer func() {
		chainMu.Lock()
		defer chainMu.Unlock()
		closeChain()
	}()

	oracleReader := oracle.NewReader(tracer, nil, cfg.Pairs, m)
	marketReader := market.NewReader(tracer, newMarketProviderFunc(tracer, cfg.CoinGeckoBaseURL), market.Config{
		Currency:      cfg.MarketCurrency,
		PerPage:       cfg.MarketPageSize,
		SymbolMapping: cfg.SymbolMapping,
	}, m)

	feed := events.NewFeed(events.DefaultFeedSize)

	var publisher service.ViewPublisher
	if cache.Client != nil {
		publisher = cache.NewViewCache(cache.Client, cache.DefaultViewTTL)
	}
	dashboard := service.NewDashboardService(tracer, oracleReader, marketReader, feed, publisher, service.Options{
		MintSymbol:   domain.MintSymbol,
		OraclePeriod: time.Duration(cfg.OraclePollSecs) * time.Second,
		MarketPeriod: time.Duration(cfg.MarketPollSecs) * time.Second,
	}, m)
	feed.OnEvent(func(domain.ThresholdEvent) { dashboard.Republish(ctx) })

	submitter := action.NewSubmitter(tracer, nil, nil, intentStore,
		time.Duration(cfg.TxConfirmTimeoutSecs)*time.Second, m)

	attach := func(d chainDeps) {
		chainMu.Lock()
		closeChain = d.close
		chainMu.Unlock()

		oracleReader.SetContract(d.oracle)
		submitter.Attach(d.actions, d.signer)
		if d.events != nil {
			watcher := events.NewWatcher(tracer, d.events, feed, eventStore, cfg.EventPollSecs, m)
			go func() {
				if err := startWatcherFunc(watcher, ctx); err != nil {
					log.WithError(err).Warn("threshold event watcher not running")
				}
			}()
		}
		if cfg.BootstrapFeeds && submitter.CanSign() {
			go func() {
				intents, err := submitter.BootstrapFeeds(ctx, cfg.PriceFeeds)
				if err != nil {
					log.WithError(err).Warn("feed bootstrap failed")
					return
				}
				log.WithField("transactions", len(intents)).Info("feed bootstrap finished")
			}()
		}
	}
	if err == nil {
		attach(deps)
	} else {
		go func() {
			if err := redialChain(ctx, cfg, log, attach); err != nil {
				log.WithError(err).Error("chain configuration mismatch, shutting down")
				cancel()
			}
		}()
	}

	poller := job.NewPoller(tracer, dashboard, cfg.OraclePollSecs, cfg.MarketPollSecs)
	startPollerFunc(poller, ctx)

	if err := startTelegramBotFunc(ctx, cfg.TelegramBotToken, cfg.TelegramAlertChatID, dashboard, feed); err != nil {
		log.WithError(err).Warn("telegram bot not started")
	}

	h := handler.New(tracer, dashboard, submitter, m, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(serviceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-waitFor(quit):
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exiting")
}

func waitFor(quit <-chan os.Signal) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(done)
	}()
	return done
}
