package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"musicapi/cache"
	"musicapi/config"
	"musicapi/core/track"
	"musicapi/db"
	"musicapi/logger"
	"musicapi/repository"
	"musicapi/server"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 musicapi HTTP 服务器",
	Long:  `启动歌曲管理 REST API，提供 /tracks 增删改查和排行报表接口`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides HTTP_ADDR")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, cfg.AutoMigrate)
	if err != nil {
		logger.Error("Failed to open store", logger.String("backend", cfg.StoreBackend), logger.ErrorField(err))
		return err
	}
	defer closeStore()

	var rankings track.RankingCache
	if cfg.CacheEnabled {
		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to Redis", logger.String("addr", cfg.RedisAddr()), logger.ErrorField(err))
			return err
		}
		defer client.Close()
		rankings = cache.NewRankingCache(client, cfg.CacheTTL)
		logger.Info("Ranking cache enabled", logger.String("addr", cfg.RedisAddr()), logger.Duration("ttl", cfg.CacheTTL))
	}

	svc := track.NewService(repo, rankings)
	router := server.NewRouter(server.NewAPIHandler(svc))

	return server.Start(ctx, cfg.HTTPAddr, router)
}

// openStore builds the repository for the configured backend. The returned
// func releases its connections.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (repository.TrackRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("Using in-memory store, data is lost on exit")
		return repository.NewMemoryTrackRepository(), func() {}, nil

	case config.StoreGorm:
		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.CloseGormDB(gdb); err != nil {
				logger.Warn("Failed to close database", logger.ErrorField(err))
			}
		}
		if migrate {
			if err := db.AutoMigrateModels(gdb, repository.GormModels()...); err != nil {
				closeFn()
				return nil, nil, err
			}
		}
		logger.Info("Connected to MySQL via GORM", logger.String("db", cfg.DBName))
		return repository.NewGormTrackRepository(gdb), closeFn, nil

	case config.StoreMySQL:
		conn, err := db.ConnectDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { closeDB(conn) }
		if migrate {
			if err := db.InitDB(ctx, conn); err != nil {
				closeFn()
				return nil, nil, err
			}
		}
		logger.Info("Connected to MySQL", logger.String("db", cfg.DBName))
		return repository.NewMySQLTrackRepository(conn), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logger.Warn("Failed to close database", logger.ErrorField(err))
	}
}
