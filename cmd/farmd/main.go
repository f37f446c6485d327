package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/config"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/gateway/middleware"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/gateway/routes"
	nativefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/farm"
	nativetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/native/treasury"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/observability/logging"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/observability/metrics"
	telemetry "github.com/PolyGoonMaticOG/polygoon-farm-contracts/observability/otel"
	statefarm "github.com/PolyGoonMaticOG/polygoon-farm-contracts/state/farm"
	statetreasury "github.com/PolyGoonMaticOG/polygoon-farm-contracts/state/treasury"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/storage"
	"github.com/PolyGoonMaticOG/polygoon-farm-contracts/token"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to farmd configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logging.Setup("farmd", "").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup("farmd", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Endpoint != "" {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "farmd",
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			logger.Error("initialise telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(shutdownCtx)
		}()
	}

	var db storage.Database
	if cfg.DataDir != "" {
		db, err = storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open database", "path", cfg.DataDir, "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no data directory configured, state is ephemeral")
		db = storage.NewMemDB()
	}
	defer db.Close()

	owner := config.Address(cfg.Accounts.Owner)
	farmModule := config.Address(cfg.Accounts.FarmModule)
	treasuryModule := config.Address(cfg.Accounts.TreasuryModule)
	rewardAsset := config.Address(cfg.Accounts.RewardAsset)

	ledger := token.NewMemLedger()
	emitter := metrics.NewEmitter(nil)
	now := func() uint64 { return uint64(time.Now().Unix()) }

	treasury := nativetreasury.New(owner, treasuryModule, rewardAsset)
	treasury.SetState(statetreasury.NewStore(db))
	treasury.SetLedger(ledger)
	treasury.SetEmitter(emitter)
	if err := treasury.SetAuthorizedCaller(owner, farmModule); err != nil {
		logger.Error("authorize farm module", "error", err)
		os.Exit(1)
	}
	if params, err := treasury.Params(); err != nil || params == nil {
		vestingParams := &nativetreasury.Params{
			WeekSeconds:         cfg.Vesting.WeekSeconds,
			LockupWeeks:         cfg.Vesting.LockupWeeks,
			BurnBps:             cfg.Vesting.BurnBps,
			UnlockOffsetSeconds: cfg.Vesting.UnlockOffsetSeconds,
		}
		if err := treasury.SetParams(owner, vestingParams); err != nil {
			logger.Error("apply vesting parameters", "error", err)
			os.Exit(1)
		}
	}

	engine := nativefarm.NewEngine(owner, farmModule, rewardAsset)
	engine.SetState(statefarm.NewStore(db))
	engine.SetLedger(ledger)
	engine.SetRewardSink(treasury.Clocked(now))
	engine.SetTreasuryAddress(treasuryModule)
	engine.SetEmitter(emitter)
	if err := engine.SetOperator(owner, config.Address(cfg.Accounts.Operator)); err != nil {
		logger.Error("assign operator", "error", err)
		os.Exit(1)
	}
	if err := engine.SetFeeCollector(owner, config.Address(cfg.Accounts.FeeCollector)); err != nil {
		logger.Error("assign fee collector", "error", err)
		os.Exit(1)
	}
	if _, err := engine.Emission(); err != nil {
		rate, err := cfg.RewardPerBlock()
		if err != nil {
			logger.Error("parse emission rate", "error", err)
			os.Exit(1)
		}
		em := &nativefarm.Emission{
			RewardPerBlock: rate,
			StartHeight:    cfg.Emission.StartHeight,
			DurationBlocks: cfg.Emission.DurationBlocks,
			OperatorBps:    cfg.Emission.OperatorBps,
		}
		if err := engine.SetEmissionSchedule(owner, em, false); err != nil {
			logger.Error("apply emission schedule", "error", err)
			os.Exit(1)
		}
	}

	var authenticator *middleware.Authenticator
	if cfg.Auth.Enabled {
		authenticator = middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    true,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		}, nil)
	}
	observability := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "farmd",
		Enabled:     true,
	}, nil)
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"farm":     {RequestsPerMinute: 600, Burst: 30},
		"treasury": {RequestsPerMinute: 600, Burst: 30},
	}, nil)

	// Block height advances one unit per second of wall time. Deployments
	// tracking a real chain replace this with the chain head.
	wallNow := time.Now
	handler := routes.New(routes.Config{
		Farm:          routes.NewFarmRoutes(engine, wallNow, now),
		Treasury:      routes.NewTreasuryRoutes(treasury, wallNow),
		Authenticator: authenticator,
		RateLimiter:   limiter,
		Observability: observability,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("gateway listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway server", "error", err)
			stop()
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", "address", cfg.MetricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown", "error", err)
		}
	}
}
