package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Skotchmaster/account_service/internal/clock"
	"github.com/Skotchmaster/account_service/internal/es"
	"github.com/Skotchmaster/account_service/internal/events"
	"github.com/Skotchmaster/account_service/internal/hash"
	"github.com/Skotchmaster/account_service/internal/jobs"
	"github.com/Skotchmaster/account_service/internal/httpserver"
	"github.com/Skotchmaster/account_service/internal/metrics"
	mwauth "github.com/Skotchmaster/account_service/internal/middleware/auth"
	"github.com/Skotchmaster/account_service/internal/middleware/csrf"
	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/internal/mykafka"
	"github.com/Skotchmaster/account_service/internal/notify"
	"github.com/Skotchmaster/account_service/internal/permission"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/pkg/config"
	"github.com/Skotchmaster/account_service/pkg/db"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb, &models.User{}, &models.RefreshToken{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	signer, err := newSigner(cfg)
	if err != nil {
		log.Fatalf("jwt signer: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "account")

	var prod *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
	}

	sinks := []events.Sink{events.LogSink{Log: logger}}
	if prod != nil {
		sinks = append(sinks, events.KafkaSink{Producer: prod, Topic: cfg.UserEventsTopic})
	}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		esCancel()
		if err != nil {
			logger.Warn("es_unavailable", "error", err)
		} else {
			sinks = append(sinks, events.AuditSink{Indexer: es.NewAuditSink(client, cfg.ESAuditIndex)})
		}
	}
	publisher := events.NewPublisher(1024, logger, sinks...)
	publisher.Start()

	dispatcher := notify.NewDispatcher(newSender(cfg, prod, logger), 256, logger,
		notify.WithSendTimeout(10*time.Second),
	)
	dispatcher.Start(2)

	queue := jobs.NewQueue(256, logger, jobs.WithTimeout(30*time.Second))
	queue.Start(2)

	clk := clock.System{}
	issuer := tokens.NewIssuer(signer, tokens.IssuerConfig{
		Issuer:       cfg.JWTIssuer,
		AccessTTL:    cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
		RefreshBytes: cfg.RefreshBytes,
	}, clk, nil)
	store := repo.New(gdb)

	deps := service.Deps{
		Store:   store,
		Issuer:  issuer,
		Hasher:  hash.NewBcrypt(cfg.BcryptCost),
		Clock:   clk,
		Mailer:  dispatcher,
		Jobs:    queue,
		Events:  publisher,
		Metrics: m,
		Options: service.Options{
			RefreshRetention: cfg.RefreshRetain,
			ResetTTL:         cfg.ResetTTL,
			RevokeOnReset:    cfg.RevokeOnReset,
			ResetURLBase:     cfg.ResetURLBase,
			ResetOrigins:     cfg.ResetOrigins,
		},
	}

	var csrfCfg *csrf.Config
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		csrfCfg = &c
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	httpserver.Register(e, &httpserver.Deps{
		Handler: &httpserver.AccountHTTP{
			Auth:  service.NewAuthService(deps),
			Reset: service.NewResetService(deps),
			Users: service.NewUserService(deps),
			Clock: clk,
		},
		Auth:     mwauth.NewAuthenticator(issuer),
		Gate:     permission.NewGate(permission.DefaultPolicy()),
		Store:    store,
		Log:      logger,
		Metrics:  m,
		Gatherer: reg,
		CSRF:     csrfCfg,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	queue.Close()
	dispatcher.Close()
	publisher.Close()
	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}

func newSigner(cfg config.Config) (tokens.Signer, error) {
	if cfg.JWTEd25519Seed != "" {
		return tokens.Ed25519SignerFromSeed(cfg.JWTEd25519Seed)
	}
	return tokens.NewHMACSigner(cfg.JWTSecret)
}

func newSender(cfg config.Config, prod *mykafka.Producer, logger *slog.Logger) notify.Sender {
	switch cfg.NotifyDriver {
	case "smtp":
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		})
	case "kafka":
		return notify.KafkaSender{Producer: prod, Topic: cfg.NotificationsTopic}
	default:
		return notify.LogSender{Log: logger}
	}
}
