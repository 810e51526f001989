package cmd

import (
	"context"
	"fmt"

	"musicapi/cache"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Redis 排行缓存管理",
}

var cachePingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，并进行基本读写操作。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		ctx := context.Background()

		fmt.Printf("Redis配置: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)
		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer client.Close()

		if err := cache.TestRedis(ctx, client); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Println("Redis基本操作测试成功！")
		return nil
	},
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "清除缓存的排行报表",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		ctx := context.Background()

		client, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer client.Close()

		if err := cache.NewRankingCache(client, cfg.CacheTTL).Invalidate(ctx); err != nil {
			return err
		}
		fmt.Println("排行缓存已清除")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePingCmd, cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}
