package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"AudioScribe/core/audio"
	"AudioScribe/core/media"
	"AudioScribe/logger"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "检测媒体文件类型和时长",
	Long:  `根据文件头识别 MIME 类型，MP3 通过帧遍历计算时长，其余格式调用 ffprobe。`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor := audio.NewFFmpegProcessor(cfg.FFmpegPath)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		for _, path := range args {
			info, err := media.Inspect(path)
			if err != nil {
				return err
			}

			result := map[string]interface{}{
				"path":  info.Path,
				"type":  info.MIME,
				"size":  info.Size,
				"media": media.IsMedia(info.MIME),
			}
			switch {
			case info.Duration > 0:
				result["duration"] = info.Duration.Seconds()
			case media.IsMedia(info.MIME):
				seconds, err := processor.GetAudioDuration(context.Background(), path)
				if err != nil {
					logger.Warn("ffprobe 获取时长失败", logger.String("path", path), logger.ErrorField(err))
				} else {
					result["duration"] = seconds
				}
			}

			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("输出结果失败: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
