package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"ledir/config"
	"ledir/internal/application"
	"ledir/internal/domain"
	"ledir/internal/infra/chardev"
	"ledir/internal/infra/dryrun"
	"ledir/internal/infra/email"
	"ledir/internal/infra/homeassistant"
	"ledir/internal/infra/mqttir"
	"ledir/internal/infra/pushover"
	"ledir/internal/infra/serialir"
	"ledir/internal/infra/tuya"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log the codes instead of transmitting them")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <button>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	os.Exit(run(os.Stdout, *configPath, *dryRun, flag.Args()))
}

func run(stdout io.Writer, configPath string, dryRun bool, args []string) int {
	cfg, err := config.Load(config.Locate(configPath))
	if err != nil {
		slog.Error("loading config", "error", err)
		return 1
	}

	logger, closeLog := setupLogger(cfg.Log, stdout)
	defer closeLog()

	logger = logger.With("run_id", uuid.NewString())
	logger.Info("----------------------------------------------------")
	defer logger.Info("end")

	boundary := application.NewBoundary(createNotifier(cfg.Notify, logger), cfg.Notify.Source, logger)

	err = boundary.Run(context.Background(), func(ctx context.Context) error {
		return dispatch(ctx, cfg, dryRun, args, logger)
	})
	if err != nil {
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cfg *config.Config, dryRun bool, args []string, logger *slog.Logger) error {
	// usage errors must not depend on the transmitter being reachable
	if _, err := application.ParseCommand(args); err != nil {
		logger.Error("invalid args", "count", len(args), "args", args)
		return err
	}

	var codes *domain.Codeset
	if cfg.Transmitter.Codeset != "" {
		var err error
		codes, err = domain.LoadCodeset(cfg.Transmitter.Codeset)
		if err != nil {
			return fmt.Errorf("loading codeset: %w", err)
		}
	}

	tx, err := createTransmitter(ctx, cfg.Transmitter, codes, dryRun, logger)
	if err != nil {
		return fmt.Errorf("creating transmitter: %w", err)
	}
	defer func() {
		if err := tx.Close(); err != nil {
			logger.Warn("closing transmitter", "error", err)
		}
	}()

	// a nil *Codeset inside the interface would not read as "no checker"
	var checker application.CodeChecker
	if codes != nil {
		checker = codes
	}

	ramp, err := rampConfig(cfg)
	if err != nil {
		return err
	}

	return application.NewDispatcher(tx, checker, ramp, logger).Dispatch(ctx, args)
}

func createTransmitter(
	ctx context.Context,
	cfg config.TransmitterConfig,
	codes *domain.Codeset,
	dryRun bool,
	logger *slog.Logger,
) (application.Transmitter, error) {
	if dryRun {
		return dryrun.NewTransmitter(logger), nil
	}

	switch cfg.Backend {
	case "serial":
		return serialir.Open(cfg.Pin, cfg.Serial.Baud, codes)
	case "chardev":
		return chardev.Open(cfg.Pin, codes)
	case "mqtt":
		timeout, err := time.ParseDuration(cfg.MQTT.Timeout)
		if err != nil {
			return nil, fmt.Errorf("mqtt timeout: %w", err)
		}
		return mqttir.Connect(ctx, mqttir.Options{
			Broker:      cfg.MQTT.Broker,
			Device:      cfg.Pin,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         cfg.MQTT.QoS,
			Timeout:     timeout,
		}, codes, logger)
	case "homeassistant":
		ha := cfg.HomeAssistant
		return homeassistant.NewClient(ha.URL, ha.Token, cfg.Pin, ha.Device), nil
	case "tuya":
		t := cfg.Tuya
		client := tuya.NewClient(t.ClientID, t.Secret, t.Region)
		return tuya.NewTransmitter(client, cfg.Pin, t.RemoteID, t.CategoryID, codes), nil
	case "log":
		return dryrun.NewTransmitter(logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func rampConfig(cfg *config.Config) (application.RampConfig, error) {
	interval, err := cfg.RampInterval()
	if err != nil {
		return application.RampConfig{}, err
	}

	commands := make([]domain.Command, 0, len(cfg.Ramp.Commands))
	for _, c := range cfg.Ramp.Commands {
		commands = append(commands, domain.Command(c))
	}

	return application.RampConfig{
		Pulses:   cfg.Ramp.Pulses,
		Interval: interval,
		Commands: commands,
	}, nil
}

func createNotifier(cfg config.NotifyConfig, logger *slog.Logger) application.Notifier {
	var notifiers application.MultiNotifier

	if cfg.Email.Enabled {
		e := cfg.Email
		notifiers = append(notifiers, email.NewClient(e.Host, e.Port, e.Username, e.Password, e.From, e.To))
	}
	if cfg.Pushover.Enabled {
		notifiers = append(notifiers, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}

	switch len(notifiers) {
	case 0:
		logger.Debug("no alert channel configured")
		return &application.NoopNotifier{}
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

// setupLogger mirrors records to stdout and, unless cfg.File is "-", to a
// size-rotated log file.
func setupLogger(cfg config.LogConfig, stdout io.Writer) (*slog.Logger, func()) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	out := stdout
	closeFn := func() {}
	if cfg.File != "-" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn
}
