package cmd

import (
	"context"

	"musicapi/config"
	"musicapi/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建 tracks 表",
	Long:  `连接 MySQL 并创建 tracks 表。STORE_BACKEND=gorm 时使用 GORM AutoMigrate。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.StoreBackend == config.StoreMemory {
			logger.Info("In-memory store needs no migration")
			return nil
		}

		_, closeStore, err := openStore(context.Background(), cfg, true)
		if err != nil {
			logger.Error("Migration failed", logger.String("backend", cfg.StoreBackend), logger.ErrorField(err))
			return err
		}
		closeStore()

		logger.Info("Schema is up to date", logger.String("backend", cfg.StoreBackend))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
