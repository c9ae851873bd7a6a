package main

import (
	"AudioScribe/cmd"
	"AudioScribe/logger"
)

func main() {
	defer logger.Sync()
	cmd.Execute()
}
