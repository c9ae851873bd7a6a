package cmd

import (
	"context"
	"fmt"

	"AudioScribe/model"
	"AudioScribe/repository"
	"AudioScribe/server"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查看转录历史（需要配置 MySQL）",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(app *server.App, history repository.TranscriptRepository) error {
			records, err := history.Recent(context.Background(), historyLimit)
			if err != nil {
				return fmt.Errorf("查询转录历史失败: %w", err)
			}
			for _, r := range records {
				printRecord(r)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "显示文件内容最近一次转录记录",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(app *server.App, history repository.TranscriptRepository) error {
			hash, err := app.Orchestrator.Cache().Key(args[0])
			if err != nil {
				return err
			}
			record, err := history.LatestByHash(context.Background(), hash)
			if err != nil {
				return fmt.Errorf("查询转录历史失败: %w", err)
			}
			if record == nil {
				return fmt.Errorf("%s 没有转录记录", args[0])
			}
			printRecord(record)
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <file>",
	Short: "删除文件内容的全部转录记录",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(app *server.App, history repository.TranscriptRepository) error {
			hash, err := app.Orchestrator.Cache().Key(args[0])
			if err != nil {
				return err
			}
			if err := history.DeleteByHash(context.Background(), hash); err != nil {
				return fmt.Errorf("删除转录历史失败: %w", err)
			}
			fmt.Printf("已删除 %s 的转录记录\n", args[0])
			return nil
		})
	},
}

func withHistory(fn func(app *server.App, history repository.TranscriptRepository) error) error {
	if !cfg.DBEnabled() {
		return fmt.Errorf("DB_HOST 未配置")
	}
	return withCache(func(app *server.App) error {
		history := app.Orchestrator.History()
		if history == nil {
			return fmt.Errorf("数据库不可用")
		}
		return fn(app, history)
	})
}

func printRecord(r *model.TranscriptRecord) {
	fmt.Printf("%s  %s  %-40s %7.1fs  %3d段  %6d字  cached=%v\n",
		r.CreatedAt.Format("2006-01-02 15:04:05"), r.ContentHash, r.Filename,
		r.DurationSeconds, r.Segments, r.Characters, r.Cached)
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "显示的记录数")
	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
