package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"

	"price-oracle-dashboard/internal/cache"
	"price-oracle-dashboard/internal/config"
	"price-oracle-dashboard/internal/logger"
	"price-oracle-dashboard/internal/tui"
	"price-oracle-dashboard/pkg/tracing"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newViewLoaderFunc = func() tui.ViewLoader {
		return cache.NewViewCache(cache.Client, cache.DefaultViewTTL)
	}
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

// authorizer accepts keys whose SHA256 fingerprint is in the allow list.
type authorizer struct {
	allowed map[string]struct{}
	log     *logger.Entry
}

func newAuthorizer(fingerprints []string, log *logger.Entry) *authorizer {
	a := &authorizer{allowed: make(map[string]struct{}, len(fingerprints)), log: log}
	for _, fp := range fingerprints {
		a.allowed[fp] = struct{}{}
	}
	return a
}

func (a *authorizer) Allow(ctx ssh.Context, key ssh.PublicKey) bool {
	return a.allow(ctx.User(), key)
}

func (a *authorizer) allow(user string, key gossh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	if _, ok := a.allowed[fingerprint]; !ok {
		a.log.WithFields(logger.Fields{"user": user, "fingerprint": fingerprint}).Warn("ssh auth denied")
		return false
	}
	a.log.WithFields(logger.Fields{"user": user, "fingerprint": fingerprint}).Info("ssh auth accepted")
	return true
}

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	if err := logger.L().Configure(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, cfg.LogMaxAgeDays); err != nil {
		logger.L().WithComponent("ssh").WithError(err).Warn("invalid logging config, keeping defaults")
	}
	log := logger.L().WithComponent("ssh")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.WithError(err).Error("redis unavailable, dashboard sessions will show no data")
	}

	tp, _, err := initTracerFunc(ctx, "price-oracle-dashboard-ssh")
	if err != nil {
		log.WithError(err).Error("failed to initialize tracer")
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("error shutting down tracer provider")
		}
	}()

	if len(cfg.SSHAuthorizedKeys) == 0 {
		log.Warn("SSH_AUTHORIZED_KEYS is empty, every login will be denied")
	}
	auth := newAuthorizer(cfg.SSHAuthorizedKeys, log)
	loader := newViewLoaderFunc()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)
	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(auth.Allow),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewModel(loader, s.User())
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)
				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.WithError(err).Error("failed to create SSH server")
		return
	}

	if srv != nil {
		go func() {
			log.WithField("addr", addr).Info("ssh server listening")
			if err := srv.ListenAndServe(); err != nil {
				log.WithError(err).Info("ssh server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("shutting down ssh server")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("ssh server shutdown error")
		}
	}

	log.Info("ssh server exited")
}
