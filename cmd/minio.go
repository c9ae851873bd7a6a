package cmd

import (
	"context"
	"fmt"
	"sort"

	"AudioScribe/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理归档上传文件与转录文本的MinIO存储桶，支持列出文件、查看统计信息、递归显示目录结构、删除目录等功能。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.MinioEnabled() {
			return fmt.Errorf("MINIO_ENDPOINT 未配置")
		}
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		ctx := context.Background()
		archive, err := storage.NewArchive(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		fmt.Println("MinIO连接成功！")

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定目录前缀")
			}
			fmt.Printf("\n删除目录: %s\n", minioPrefix)
			n, err := archive.DeleteDirectory(ctx, minioPrefix)
			if err != nil {
				return fmt.Errorf("删除目录失败: %w", err)
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return nil
		}

		objects, stats, err := archive.ListObjects(ctx, minioPrefix, minioRecursive)
		if err != nil {
			return fmt.Errorf("列出文件失败: %w", err)
		}

		if minioStats {
			printBucketStats(archive.Bucket(), stats)
			return nil
		}

		fmt.Printf("\n存储桶 %s 中的文件 (前缀: %q):\n", archive.Bucket(), minioPrefix)
		for _, obj := range objects {
			fmt.Printf("  %-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("\n共 %d 个对象，%s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

func printBucketStats(bucket string, stats *storage.BucketStats) {
	fmt.Printf("\n存储桶: %s\n", bucket)
	fmt.Printf("对象总数: %d\n", stats.TotalObjects)
	fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
	}

	exts := make([]string, 0, len(stats.TypeCounts))
	for ext := range stats.TypeCounts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	fmt.Println("文件类型分布:")
	for _, ext := range exts {
		fmt.Printf("  %-10s %d\n", ext, stats.TypeCounts[ext])
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "递归列出子目录")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	minioCmd.Example = `  # 列出所有文件
  audioscribe minio -r

  # 查看归档的转录文本
  audioscribe minio -r -p "transcripts/"

  # 显示存储桶统计信息
  audioscribe minio -s -r

  # 删除上传归档目录
  audioscribe minio -d -p "uploads/"`
}
