package cmd

import (
	"context"
	"fmt"

	"AudioScribe/server"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "管理转录缓存",
}

var cacheKeyCmd = &cobra.Command{
	Use:   "key <file>...",
	Short: "输出文件内容的 MD5 缓存键",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(app *server.App) error {
			for _, path := range args {
				key, err := app.Orchestrator.Cache().Key(path)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", key, path)
			}
			return nil
		})
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "显示文件已缓存的转录结果",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(app *server.App) error {
			text, ok, err := app.Orchestrator.Cache().Lookup(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s 没有缓存的转录结果", args[0])
			}
			fmt.Println(text)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <file>...",
	Short: "清除文件的转录缓存（本地文件、Redis 与 MinIO）",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(app *server.App) error {
			for _, path := range args {
				if err := app.Orchestrator.Cache().Clear(context.Background(), path); err != nil {
					return err
				}
				fmt.Printf("已清除 %s 的缓存\n", path)
			}
			return nil
		})
	},
}

func withCache(fn func(app *server.App) error) error {
	cfg.WatchUploads = false
	app, err := server.NewApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func init() {
	cacheCmd.AddCommand(cacheKeyCmd, cacheShowCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
