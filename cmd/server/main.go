package main

import (
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/server"
	"github.com/OFFIS-RIT/consistency-vis/backend/internal/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnvString("LOG_FORMAT", "text"),
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	server.Init()
}
