package recognizer

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"AudioScribe/core/apperr"
	"AudioScribe/core/utils"
	"AudioScribe/logger"
)

// CommandBackend runs an external recognizer executable that prints
// [{"text": ...}] as JSON on stdout.
type CommandBackend struct {
	command string
	opts    Options
	runner  utils.CommandRunner
}

// NewCommandBackend 创建命令行识别后端，runner 为空时使用 os/exec
func NewCommandBackend(command string, opts Options, runner utils.CommandRunner) *CommandBackend {
	if runner == nil {
		runner = utils.ExecRunner{}
	}
	return &CommandBackend{command: command, opts: opts, runner: runner}
}

// Load 检查可执行文件是否存在
func (b *CommandBackend) Load(context.Context) error {
	path, err := exec.LookPath(b.command)
	if err != nil {
		return apperr.Wrapf(apperr.BackendUnavailable, "load backend", err, "recognizer command %q not found", b.command)
	}
	logger.Info("识别命令就绪", logger.String("path", path), logger.String("model", b.opts.Model))
	return nil
}

func (b *CommandBackend) args(audioPath string) []string {
	args := []string{"--model", b.opts.Model, "--audio", audioPath}
	if b.opts.Punctuation {
		args = append(args, "--punc")
	}
	return args
}

// Generate 调用外部命令识别一个音频文件
func (b *CommandBackend) Generate(ctx context.Context, audioPath string) ([]Result, error) {
	const op = "recognize"
	args := b.args(audioPath)
	logger.Debug("执行识别命令", logger.String("command", utils.CommandLine(b.command, args)))

	result, err := b.runner.Run(ctx, b.command, args...)
	if err != nil {
		return nil, &apperr.Error{
			Kind:    apperr.RecognitionFailure,
			Op:      op,
			Message: fmt.Sprintf("recognizer failed for %s (exit %d)", filepath.Base(audioPath), result.ExitCode),
			Detail:  strings.TrimSpace(result.Stderr),
			Err:     err,
		}
	}

	results, err := parseResults([]byte(result.Stdout))
	if err != nil {
		return nil, apperr.Wrap(apperr.RecognitionFailure, op, err)
	}
	return results, nil
}
