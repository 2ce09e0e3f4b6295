package main

import (
	"go.uber.org/zap"
)

func newLogger(verbose bool) (*zap.Logger, error) {
	logConfig := zap.NewDevelopmentConfig()
	if !verbose {
		logConfig.Level.SetLevel(zap.InfoLevel)
		logConfig.DisableCaller = true
		logConfig.DisableStacktrace = true
	}
	return logConfig.Build()
}
