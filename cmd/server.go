package cmd

import (
	"AudioScribe/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 AudioScribe 服务器",
	Long:  `启动 HTTP 服务器，提供上传、音频提取、转录、任务进度查询和 Web 界面`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
