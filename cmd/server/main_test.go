package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"price-oracle-dashboard/internal/bot"
	"price-oracle-dashboard/internal/chain"
	"price-oracle-dashboard/internal/config"
	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/job"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/market"
	"price-oracle-dashboard/internal/provider"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	var botToken string
	var routerBuilt bool
	startTelegramBotFunc = func(_ context.Context, token string, _ int64, _ bot.Dashboard, _ bot.EventNotifier) error {
		botToken = token
		return nil
	}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine {
		routerBuilt = true
		return gin.New()
	}

	runMain(t)
	if botToken != "bot-token" {
		t.Fatalf("expected telegram token to be passed, got %q", botToken)
	}
	if !routerBuilt {
		t.Fatal("expected router to be built")
	}
}

func TestMainSurvivesChainAndStoreFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	initPostgresFunc = func(context.Context, string) error { return errors.New("connection refused") }
	initRedisFunc = func(context.Context, string) error { return errors.New("connection refused") }
	dialChainFunc = func(context.Context, chain.Config) (*chain.Client, error) {
		return nil, errors.New("dial tcp: no route to host")
	}
	var signerCalled bool
	newSignerFunc = func(chain.SignerConfig, *big.Int) (chain.Signer, error) {
		signerCalled = true
		return nil, nil
	}

	runMain(t)
	if signerCalled {
		t.Fatal("signer should not be built without a chain connection")
	}
}

func TestMainExitsOnChainConfigMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	dialChainFunc = func(context.Context, chain.Config) (*chain.Client, error) {
		return nil, fmt.Errorf("%w: node reports 1, expected 84532", chain.ErrWrongChain)
	}
	httpStarted := make(chan struct{}, 1)
	startHTTPServerFunc = func(*http.Server) error {
		httpStarted <- struct{}{}
		return http.ErrServerClosed
	}

	runMain(t)
	select {
	case <-httpStarted:
		t.Fatal("http server should not start on a chain mismatch")
	default:
	}
}

func TestRedialChainRetriesUntilMismatch(t *testing.T) {
	origDial, origDelay := dialChainFunc, chainRetryDelay
	defer func() { dialChainFunc, chainRetryDelay = origDial, origDelay }()
	chainRetryDelay = time.Millisecond

	attempts := 0
	dialChainFunc = func(context.Context, chain.Config) (*chain.Client, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return nil, fmt.Errorf("%w: 0xa176", chain.ErrNoContract)
	}

	attached := false
	err := redialChain(context.Background(), &config.Config{}, logger.Discard().WithComponent("test"), func(chainDeps) { attached = true })
	if !errors.Is(err, chain.ErrNoContract) {
		t.Fatalf("expected ErrNoContract, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 dial attempts, got %d", attempts)
	}
	if attached {
		t.Fatal("nothing should attach after a mismatch")
	}
}

func TestRedialChainStopsOnCancel(t *testing.T) {
	origDial, origDelay := dialChainFunc, chainRetryDelay
	defer func() { dialChainFunc, chainRetryDelay = origDial, origDelay }()
	chainRetryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	dialChainFunc = func(context.Context, chain.Config) (*chain.Client, error) {
		cancel()
		return nil, errors.New("dial tcp: connection refused")
	}
	if err := redialChain(ctx, &config.Config{}, logger.Discard().WithComponent("test"), func(chainDeps) {}); err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
}

func TestMainExitsOnTracerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	initTracerFunc = func(context.Context, string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		return nil, nil, errors.New("collector down")
	}
	httpStarted := make(chan struct{}, 1)
	startHTTPServerFunc = func(*http.Server) error {
		httpStarted <- struct{}{}
		return http.ErrServerClosed
	}

	runMain(t)
	select {
	case <-httpStarted:
		t.Fatal("http server should not start without a tracer")
	default:
	}
}

func TestMainStopsWhenHTTPServerFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	block := make(chan struct{})
	defer close(block)
	waitForSignalFunc = func(<-chan os.Signal) { <-block }
	startHTTPServerFunc = func(*http.Server) error { return errors.New("address already in use") }

	runMain(t)
}

func TestStoresFallBackToMemoryWithoutPool(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	intents, events := stores(context.Background(), tp.Tracer("test"), logger.Discard().WithComponent("test"))
	if intents == nil {
		t.Fatal("expected in-memory intent store")
	}
	if events != nil {
		t.Fatal("expected no event store without postgres")
	}
}

func runMain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origDialChain := dialChainFunc
	origNewSigner := newSignerFunc
	origNewProvider := newMarketProviderFunc
	origStartPoller := startPollerFunc
	origStartWatcher := startWatcherFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			Pairs:            domain.DefaultPairs,
			OraclePollSecs:   1,
			MarketPollSecs:   1,
			EventPollSecs:    1,
			HTTPPort:         8080,
			TelegramBotToken: "bot-token",
			LogLevel:         "error",
		}
	}
	initPostgresFunc = func(context.Context, string) error { return nil }
	initRedisFunc = func(context.Context, string) error { return nil }
	initTracerFunc = func(context.Context, string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	dialChainFunc = func(context.Context, chain.Config) (*chain.Client, error) {
		return nil, errors.New("no chain in tests")
	}
	newMarketProviderFunc = func(trace.Tracer, string) market.Provider { return stubMarketProvider{} }
	startPollerFunc = func(*job.Poller, context.Context) {}
	startTelegramBotFunc = func(context.Context, string, int64, bot.Dashboard, bot.EventNotifier) error { return nil }
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		dialChainFunc = origDialChain
		newSignerFunc = origNewSigner
		newMarketProviderFunc = origNewProvider
		startPollerFunc = origStartPoller
		startWatcherFunc = origStartWatcher
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

type stubMarketProvider struct{}

func (stubMarketProvider) FetchMarkets(context.Context, string, int) ([]provider.MarketCoin, error) {
	return []provider.MarketCoin{{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3000}}, nil
}
