package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"AudioScribe/core/pipeline"
	"AudioScribe/server"

	"github.com/spf13/cobra"
)

var (
	transcribeNoCache bool
	transcribeOutput  string
	transcribeQuiet   bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "转录单个音视频文件",
	Long:  `在本地运行完整转录流水线（规范化、分段、识别、缓存），结果输出到标准输出或指定文件。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("无法读取输入文件: %w", err)
		}

		cfg.WatchUploads = false
		ctx := context.Background()
		app, err := server.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		taskID := filepath.Base(input)
		done := make(chan struct{})
		if !transcribeQuiet {
			go reportProgress(app.Orchestrator, taskID, done)
		}

		var text string
		if transcribeNoCache {
			text, err = app.Orchestrator.Transcribe(ctx, input, taskID)
		} else {
			var out *pipeline.Outcome
			out, err = app.Orchestrator.Run(ctx, input, taskID)
			if out != nil {
				text = out.Text
			}
		}
		close(done)
		if err != nil {
			return err
		}

		if transcribeOutput != "" {
			if err := os.WriteFile(transcribeOutput, []byte(text+"\n"), 0644); err != nil {
				return fmt.Errorf("写入输出文件失败: %w", err)
			}
			fmt.Fprintf(os.Stderr, "转录结果已写入 %s\n", transcribeOutput)
			return nil
		}
		fmt.Println(text)
		return nil
	},
}

// reportProgress 将任务进度变化输出到标准错误
func reportProgress(o *pipeline.Orchestrator, taskID string, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	lastMessage := ""
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := o.Tracker().Get(taskID)
			if snap.Message != "" && snap.Message != lastMessage {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", snap.Progress, snap.Message)
				lastMessage = snap.Message
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().BoolVar(&transcribeNoCache, "no-cache", false, "忽略已有缓存，重新识别")
	transcribeCmd.Flags().StringVarP(&transcribeOutput, "output", "o", "", "将转录结果写入文件")
	transcribeCmd.Flags().BoolVarP(&transcribeQuiet, "quiet", "q", false, "不输出进度")
}
