package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/wheelibin/hughbridge/internal/tui"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {

	flags := pflag.NewFlagSet("hughbridge-tui", pflag.ExitOnError)
	admin := flags.StringP("admin", "a", "http://localhost:8081", "address of the bridge's admin server")
	logFile := flags.String("log-file", "logs/hughbridge-tui.log", "log file, the terminal belongs to the ui")
	_ = flags.Parse(os.Args[1:])

	logger := log.NewWithOptions(&lumberjack.Logger{
		Filename: *logFile,
		MaxAge:   3,
	}, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
	})
	logger.Info("hughbridge-tui starting", "admin", *admin)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ui := tui.NewHughBridgeTUI(*admin)
	feed := tui.NewFeed(logger, *admin)

	go func() {
		if err := feed.Run(ctx, ui.Send); err != nil {
			logger.Error(err)
		}
	}()

	if err := ui.Run(); err != nil {
		logger.Fatal(err)
	}
	logger.Info("hughbridge-tui is closing")
}
