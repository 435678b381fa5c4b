package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bidwatch/koneps-sync/internal/config"
	"github.com/bidwatch/koneps-sync/internal/logging"
	"github.com/bidwatch/koneps-sync/internal/store"
	syncpkg "github.com/bidwatch/koneps-sync/internal/sync"
	"github.com/bidwatch/koneps-sync/internal/synclock"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "koneps-sync",
	Short: "Synchronize Korean public-procurement notices and awards",
	Long: `koneps-sync pulls bid notices and successful-bid outcomes from the
Korean public-procurement open-data API into PostgreSQL and serves
paginated queries over them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}

// app bundles the wired dependencies shared by the subcommands.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	pg          *store.Postgres
	notices     *store.NoticeRepo
	awards      *store.AwardRepo
	configs     *store.ConfigRepo
	coordinator *syncpkg.Coordinator
}

// setup loads configuration, connects storage, runs migrations and wires
// the coordinator. The caller owns closing app.pg.
func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)

	pg, err := store.New(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	if err := pg.Migrate(cfg.Database.Migrations); err != nil {
		pg.Close()
		return nil, err
	}

	var lock syncpkg.Locker
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := pingRedis(redisClient); err != nil {
			pg.Close()
			return nil, err
		}
		lock = synclock.New(redisClient, cfg.Redis.LockTTL(), logger)
	} else {
		logger.Warn().Msg("No redis configured, sync invocations are not serialized")
	}

	notices := store.NewNoticeRepo(pg)
	awards := store.NewAwardRepo(pg)
	configs := store.NewConfigRepo(pg)

	coordinator := syncpkg.New(syncpkg.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		RowsPerPage: cfg.Upstream.RowsPerPage,
		MaxWorkers:  cfg.Upstream.MaxWorkers,
		Timeout:     cfg.Upstream.Timeout(),
		MaxAttempts: cfg.Upstream.MaxAttempts,
		RetryDelay:  cfg.Upstream.RetryDelay(),
	}, notices, awards, configs, lock, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		pg:          pg,
		notices:     notices,
		awards:      awards,
		configs:     configs,
		coordinator: coordinator,
	}, nil
}

func pingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
