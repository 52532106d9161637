package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpadp "lendpool/internal/adapter/http"
	idemp "lendpool/internal/adapter/middleware"
	"lendpool/internal/adapter/repository/mysql"
	"lendpool/internal/chain"
	"lendpool/internal/config"
	"lendpool/internal/infrastructure/cache"
	"lendpool/internal/infrastructure/db"
	"lendpool/internal/lock"
	"lendpool/internal/notify"
	"lendpool/internal/usecase/loanflow"
	"lendpool/internal/usecase/poolflow"
	"lendpool/internal/usecase/reconcile"
	"lendpool/internal/usecase/scoring"
	"lendpool/internal/usecase/tier"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := mysql.AutoMigrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := mysql.SeedTierRules(gdb, tier.DefaultRules); err != nil {
		log.Fatalf("seed tier rules: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	guow := mysql.NewGormUoW(gdb)
	contract := chain.NewSimContract()
	adapter := reconcile.NewAdapter(contract, guow)
	locker := lock.NewLocker(rdb, cfg.LockLease)
	notifier := notify.LogNotifier{}
	scorer := scoring.NewStatic()

	loanUC := loanflow.NewUsecase(guow, adapter, locker, scorer, notifier)
	poolUC := poolflow.NewUsecase(guow, adapter, locker, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poolUC.StartSnapshotScheduler(ctx, cfg.SnapshotInterval)

	h := httpadp.NewHandler()
	lh := httpadp.NewLoanHandler(loanUC)
	ph := httpadp.NewPoolHandler(poolUC)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	guard := idemp.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)

	// routes
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/loans", lh.ApplyForLoan, guard)
	e.GET("/loans/:loan_id", lh.GetLoan)
	e.POST("/loans/:loan_id/confirm", lh.ConfirmLoan, guard)
	e.POST("/loans/:loan_id/decline", lh.DeclineLoan, guard)
	e.POST("/loans/:loan_id/repayments", lh.RecordRepayment, guard)
	e.POST("/loans/:loan_id/default", lh.MarkDefaulted, guard)
	e.GET("/users/:user_id/tier", lh.CurrentTier)

	e.POST("/pool/deposits", ph.Deposit, guard)
	e.POST("/pool/withdrawals", ph.Withdraw, guard)
	e.POST("/pool/snapshots", ph.Snapshot)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
