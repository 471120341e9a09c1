// Command catalogsync mirrors the Automeli product catalog into postgres
package main

import (
	"os"

	_ "time/tzdata"

	"catalogsync/cmd/catalogsync/app"
	"catalogsync/internal/platform/logger"
)

func main() {
	logger.Init(logger.FromEnv())

	if err := app.NewRootCmd().Execute(); err != nil {
		logger.Get().Error().Err(err).Msg("catalogsync failed")
		os.Exit(1)
	}
}
