package main

import (
	"context"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/hughbridge/internal/bridge"
	"github.com/wheelibin/hughbridge/internal/config"
	"github.com/wheelibin/hughbridge/internal/metrics"
	"github.com/wheelibin/hughbridge/internal/models"
	"github.com/wheelibin/hughbridge/internal/network"
	physicalstatemanager "github.com/wheelibin/hughbridge/internal/physicalStateManager"
	"github.com/wheelibin/hughbridge/internal/publisher"
	"github.com/wheelibin/hughbridge/internal/repos"
	"github.com/wheelibin/hughbridge/internal/server"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {

	cfg, err := config.ReadConfig(os.Args[1:])
	if err != nil {
		log.Fatal("unable to read config", "err", err)
	}

	logger := newLogger(cfg.Log)
	logger.Info("hughbridge starting")

	if err := run(cfg, logger); err != nil {
		logger.Fatal(err)
	}
	logger.Info("hughbridge is closing")
}

func newLogger(cfg config.LogConfig) *log.Logger {
	level, _ := log.ParseLevel(cfg.Level)

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename: cfg.File,
			MaxAge:   cfg.MaxAge,
		}
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    level == log.DebugLevel,
		TimeFormat:      "2006/01/02 15:04:05",
	})
}

func newIdentity(cfg config.NetworkConfig, logger *log.Logger) network.Source {
	var source network.Source = network.InterfaceSource{Name: cfg.Interface, Logger: logger}
	if cfg.IP == "" && cfg.MAC == "" {
		return source
	}

	override := network.OverrideSource{Source: source}
	if cfg.IP != "" {
		override.IP = net.ParseIP(cfg.IP)
	}
	if cfg.MAC != "" {
		// already validated
		override.MAC, _ = net.ParseMAC(cfg.MAC)
	}
	return override
}

func run(cfg *config.Config, logger *log.Logger) error {
	identity := newIdentity(cfg.Network, logger)
	collectors := metrics.NewCollectors()

	// create/wire up services
	b := bridge.New(bridge.Deps{
		Logger:   logger,
		Identity: identity,
		Metrics:  collectors,
		Options: bridge.Options{
			Host:           cfg.HTTP.Host,
			Port:           cfg.HTTP.Port,
			Username:       cfg.Bridge.Username,
			Discovery:      cfg.Discovery.Enabled,
			DiscoveryGroup: cfg.Discovery.Group,
			Interface:      cfg.Network.Interface,
			MDNS:           cfg.Discovery.MDNS,
		},
	})
	for _, name := range cfg.Devices {
		b.AddDevice(name)
	}
	if len(cfg.Devices) == 0 {
		logger.Warn("no devices configured")
	}

	psm := physicalstatemanager.NewPhysicalStateManager(logger, b.Registry(), collectors,
		physicalstatemanager.NewCallbackSink("log", func(change models.StateChange) {
			logger.Info("Light state",
				"light", change.LightNumber(),
				"name", change.Name,
				"on", change.State.On,
				"bri", change.State.Brightness,
				"hue", change.State.Hue,
				"sat", change.State.Saturation,
				"ct", change.State.ColorTemperature,
				"mode", change.State.ColorMode.Label(),
			)
		}),
	)
	b.OnSetState(psm)

	if cfg.State.Database != "" {
		db, err := repos.Open(cfg.State.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		repo, err := repos.NewStateRepo(logger, db)
		if err != nil {
			return err
		}
		psm.AddSink(repo)
	}

	if cfg.MQTT.Broker != "" {
		pub, err := publisher.Connect(publisher.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      byte(cfg.MQTT.QoS),
			Retain:   cfg.MQTT.Retain,
		}, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		psm.AddSink(pub)
	}

	if cfg.Admin.Address != "" {
		admin := server.NewAdminServer(logger, collectors.Registry())
		if err := admin.Start(cfg.Admin.Address); err != nil {
			return err
		}
		defer func() {
			if err := admin.Close(); err != nil {
				logger.Error(err)
			}
		}()
		psm.AddSink(admin)
	}

	if err := b.Start(); err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the registry is only touched from here on
	b.Run(ctx)
	return nil
}
