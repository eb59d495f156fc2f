package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"likes_watcher/internal/config"
	"likes_watcher/internal/publisher"
	"likes_watcher/internal/scheduler"
	"likes_watcher/internal/service"
	"likes_watcher/internal/source/bilibili"
	"likes_watcher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one sync and exit")
	stats := flag.Bool("stats", false, "print statistics and exit")
	recent := flag.Int("recent", 0, "print the account's N most recent likes and exit")
	info := flag.Bool("info", false, "print the remote account profile and exit")
	account := flag.Int64("account", 0, "account id for -once/-stats/-recent/-info (overrides sync.accounts)")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize stores
	videoStore := postgres.NewVideoStore(db)
	likeStore := postgres.NewLikeStore(db)
	runLogStore := postgres.NewRunLogStore(db)
	queryStore := postgres.NewQueryStore(db)
	txManager := postgres.NewTransactionManager(db)

	queryService := service.NewQueryService(queryStore, runLogStore, logger)

	// Initialize Bilibili source
	source, err := bilibili.New(bilibili.Config{
		BaseURL:        cfg.API.BaseURL,
		SessData:       cfg.API.SessData,
		Timeout:        cfg.API.Timeout,
		MaxAttempts:    cfg.API.Retry.MaxAttempts,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, logger)
	if err != nil {
		logger.Error("failed to create source", "error", err)
		os.Exit(1)
	}

	if *info {
		printAccountInfo(source, *account)
		return
	}

	if *stats {
		printStats(queryService, *account)
		return
	}

	if *recent > 0 {
		printRecent(queryService, *account, *recent)
		return
	}

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	syncService := service.NewSyncService(
		source,
		videoStore,
		likeStore,
		runLogStore,
		txManager,
		rabbitMQ,
		logger,
	)

	accounts := cfg.Sync.Accounts
	if *account != 0 {
		accounts = []int64{*account}
	}
	if len(accounts) == 0 {
		logger.Error("no accounts configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		runOnce(ctx, syncService, accounts)
		return
	}

	sched := scheduler.NewScheduler(syncService, accounts, cfg.Sync.Interval, cfg.Sync.RunTimeout, logger)

	logger.Info("starting likes watcher",
		"source", source.Name(),
		"interval", cfg.Sync.Interval,
		"accounts", accounts,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, syncService *service.SyncService, accounts []int64) {
	failed := false
	for _, accountID := range accounts {
		result, err := syncService.SyncAccount(ctx, accountID)
		if err != nil {
			fmt.Printf("account %d: sync failed: %v\n", accountID, err)
			failed = true
			continue
		}
		fmt.Printf("account %d: fetched=%d new=%d saved=%d skipped=%d total=%d\n",
			accountID, result.Fetched, result.New, result.Saved, result.Skipped, result.TotalLikes)
	}
	if failed {
		os.Exit(1)
	}
}

func printAccountInfo(source *bilibili.Source, account int64) {
	if account == 0 {
		fmt.Println("-info requires -account")
		os.Exit(1)
	}

	accountInfo, err := source.FetchAccountInfo(context.Background(), account)
	if err != nil {
		fmt.Printf("account info failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("uid:  %d\n", accountInfo.MID)
	fmt.Printf("name: %s\n", accountInfo.Name)
	if accountInfo.Face != "" {
		fmt.Printf("face: %s\n", accountInfo.Face)
	}
}

func printStats(queryService *service.QueryService, account int64) {
	ctx := context.Background()

	var accountID *int64
	if account != 0 {
		accountID = &account
	}

	stats, err := queryService.Statistics(ctx, accountID)
	if err != nil {
		fmt.Printf("statistics failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("total videos:    %d\n", stats.TotalVideos)
	fmt.Printf("total likes:     %d\n", stats.TotalLikes)
	fmt.Printf("unique accounts: %d\n", stats.UniqueAccounts)
	if stats.LastSuccessTime != nil {
		fmt.Printf("last success:    %s\n", stats.LastSuccessTime.Format("2006-01-02 15:04:05"))
	}
	if accountID != nil {
		fmt.Printf("account %d likes: %d\n", *accountID, *stats.AccountLikes)
		if stats.AccountLastRun != nil {
			fmt.Printf("account %d last run: %s\n", *accountID, stats.AccountLastRun.Format("2006-01-02 15:04:05"))
		}
	}
}

func printRecent(queryService *service.QueryService, account int64, limit int) {
	if account == 0 {
		fmt.Println("-recent requires -account")
		os.Exit(1)
	}

	records, err := queryService.RecentLikes(context.Background(), account, limit,
		[]string{"aid", "title", "owner_name", "collect_time"})
	if err != nil {
		fmt.Printf("recent likes failed: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Printf("account %d has no recorded likes\n", account)
		return
	}

	for i, record := range records {
		fmt.Printf("%d. %v  %v (by %v, collected %v)\n",
			i+1, record["aid"], record["title"], record["owner_name"], record["collect_time"])
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
