package main

import (
	"os"

	"go.uber.org/zap"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.S().Errorf("command failed: %s", err)
		os.Exit(1)
	}
}
