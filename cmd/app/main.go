package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"isp-hotspot-billing/internal/config"
	pg "isp-hotspot-billing/internal/infra/db/postgres"
	"isp-hotspot-billing/internal/infra/logging"
	"isp-hotspot-billing/internal/infra/metrics"
	red "isp-hotspot-billing/internal/infra/redis"
	"isp-hotspot-billing/internal/infra/routeros"
	"isp-hotspot-billing/internal/infra/sched"
	"isp-hotspot-billing/internal/infra/web"
	"isp-hotspot-billing/internal/infra/worker"
	"isp-hotspot-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	customerRepo := pg.NewCustomerRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	routerRepo := pg.NewRouterRepo(pool)
	paymentRecordRepo := pg.NewPaymentRecordRepo(pool)
	transactionRepo := pg.NewTransactionRecordRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- RouterOS ----
	dialer := routeros.NewDialer(cfg.Router.ConnectTimeout, cfg.Router.CommandTimeout, logger)

	// ---- Use cases ----
	reconcileUC := usecase.NewReconcileUseCase(customerRepo, planRepo, routerRepo, paymentRecordRepo, transactionRepo, txManager, cfg.Router.HotspotProfile, logger)
	provisionUC := usecase.NewProvisionUseCase(dialer, cfg.Router.DHCPServer, logger)
	registrationUC := usecase.NewRegistrationUseCase(routerRepo, dialer, locker, cfg.Provision.LockTTL, cfg.Router.HotspotProfile, cfg.Router.DHCPServer, logger)
	deviceUC := usecase.NewDeviceUseCase(routerRepo, customerRepo, dialer, locker, cfg.Provision.LockTTL, logger)
	expiryUC := usecase.NewExpiryUseCase(customerRepo, txManager, logger)

	// ---- Provisioning workers ----
	pool2 := worker.NewPool(cfg.Provision.Workers, cfg.Provision.QueueSize, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Background jobs ----
	scheduler := sched.NewScheduler(logger)
	driftWorker := sched.NewDriftWorker(routerRepo, deviceUC, logger)
	expiryWorker := sched.NewExpiryWorker(expiryUC, logger)
	if err := scheduler.Add(cfg.Scheduler.DriftCron, driftWorker.Run); err != nil {
		logger.Fatal().Err(err).Msg("drift cron")
	}
	if err := scheduler.Add(cfg.Scheduler.ExpiryCron, expiryWorker.Run); err != nil {
		logger.Fatal().Err(err).Msg("expiry cron")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TTL)
	srv := web.NewServer(reconcileUC, provisionUC, registrationUC, deviceUC, pool2, auth, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
