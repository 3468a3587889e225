package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/GoArmGo/ModuleHub/internal/app"
	"github.com/GoArmGo/ModuleHub/internal/di"
	"github.com/GoArmGo/ModuleHub/internal/logger"
)

func main() {
	mode := flag.String("mode", app.ModeServer, fmt.Sprintf("режим запуска: %s или %s", app.ModeServer, app.ModeWorker))
	flag.Parse()

	os.Exit(run(*mode))
}

// run собирает приложение и возвращает код выхода процесса.
// До появления основного логгера ошибки пишет bootstrap-логгер в JSON.
func run(mode string) int {
	bootstrap := logger.NewSlog(logger.SlogConfig{Level: "info", Format: "json", Output: os.Stderr})

	if mode != app.ModeServer && mode != app.ModeWorker {
		bootstrap.Error("unknown mode", "mode", mode)
		return 2
	}

	application, err := di.BuildApp()
	if err != nil {
		bootstrap.Error("failed to build app", "mode", mode, "error", err)
		return 1
	}

	log := application.LoggerIns()
	if err := application.Run(context.Background(), &mode); err != nil {
		log.Error("application run failed", "mode", mode, "error", err)
		return 1
	}
	return 0
}
