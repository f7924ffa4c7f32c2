package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/ledsim/cmd"
	"github.com/smazurov/ledsim/internal/animations"
	"github.com/smazurov/ledsim/internal/api"
	"github.com/smazurov/ledsim/internal/config"
	"github.com/smazurov/ledsim/internal/director"
	"github.com/smazurov/ledsim/internal/events"
	"github.com/smazurov/ledsim/internal/logging"
	"github.com/smazurov/ledsim/internal/metrics"
	"github.com/smazurov/ledsim/internal/show"
	"github.com/smazurov/ledsim/internal/sink"
	"github.com/smazurov/ledsim/internal/systemd"
	"github.com/smazurov/ledsim/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Strip settings
	StripLeds            int    `help:"Number of LEDs on the strip" default:"100" toml:"strip.leds" env:"STRIP_LEDS"`
	StripFrameDurationMs int    `help:"Milliseconds between frames" default:"5" toml:"strip.frame_duration_ms" env:"STRIP_FRAME_DURATION_MS"`
	StripFaultPolicy     string `help:"Animation fault handling (abort, isolate)" default:"abort" toml:"strip.fault_policy" env:"STRIP_FAULT_POLICY"`

	// Show settings
	ShowFile  string `help:"Show file (.toml, .yaml)" short:"s" default:"show.toml" toml:"show.file" env:"SHOW_FILE"`
	ShowWatch bool   `help:"Register animations appended to the show file while running" default:"true" toml:"show.watch" env:"SHOW_WATCH"`

	// Sink settings
	SinksTerminal   bool   `help:"Draw the strip on stdout" default:"true" toml:"sinks.terminal" env:"SINKS_TERMINAL"`
	SinksOpcAddress string `help:"Open Pixel Control server (host:port), empty to disable" default:"" toml:"sinks.opc_address" env:"SINKS_OPC_ADDRESS"`
	SinksOpcChannel int    `help:"Open Pixel Control channel, 0 for all" default:"0" toml:"sinks.opc_channel" env:"SINKS_OPC_CHANNEL"`
	SinksEventEvery int    `help:"Publish every n-th frame to the event stream" default:"20" toml:"sinks.event_every" env:"SINKS_EVENT_EVERY"`

	// Observability settings
	ObsPrometheusEnabled bool `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"obs.prometheus_enabled" env:"OBS_PROMETHEUS_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings. Empty module levels inherit the global level.
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDirector string `help:"Director logging level" default:"" toml:"logging.director" env:"LOGGING_DIRECTOR"`
	LoggingShow     string `help:"Show loader logging level" default:"" toml:"logging.show" env:"LOGGING_SHOW"`
	LoggingSink     string `help:"Sink logging level" default:"" toml:"logging.sink" env:"LOGGING_SINK"`
	LoggingAPI      string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConfig   string `help:"Config watcher logging level" default:"" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func (o *Options) loggingConfig() logging.Config {
	cfg := config.LoadLoggingConfig(o.Config)
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat
	for module, level := range map[string]string{
		"director": o.LoggingDirector,
		"show":     o.LoggingShow,
		"sink":     o.LoggingSink,
		"api":      o.LoggingAPI,
		"http":     o.LoggingHTTP,
		"config":   o.LoggingConfig,
	} {
		if level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.LogEvent(entry))
		})

		policy, err := director.ParseFaultPolicy(opts.StripFaultPolicy)
		if err != nil {
			logger.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}

		opcChannel, err := sink.OPCChannel(opts.SinksOpcChannel)
		if err != nil {
			logger.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}

		sinkLogger := logging.GetLogger("sink")
		sinks := []sink.Sink{sink.NewBus(eventBus, opts.SinksEventEvery)}
		if opts.SinksTerminal {
			sinks = append(sinks, sink.NewTerminal(os.Stdout))
		}
		if opts.SinksOpcAddress != "" {
			sinks = append(sinks, sink.NewOPC(opts.SinksOpcAddress, opcChannel, sinkLogger))
		}
		output := sink.Multi(sinks...)

		dir, err := director.New(director.Config{
			LEDs:          opts.StripLeds,
			FrameDuration: time.Duration(opts.StripFrameDurationMs) * time.Millisecond,
			FaultPolicy:   policy,
		}, output, director.WithEventBus(eventBus))
		if err != nil {
			logger.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}

		registry := animations.Default()
		loader := show.NewLoader(dir, registry, eventBus, logging.GetLogger("show"))

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Strip:        dir,
			Registry:     registry,
			EventBus:     eventBus,
		}
		if opts.ObsPrometheusEnabled {
			apiOpts.PrometheusHandler = metrics.Handler()
		}
		server := api.NewServer(apiOpts)

		notifier := systemd.NewNotifier(logger)
		ctx, cancel := context.WithCancel(context.Background())
		var watcher *config.Watcher[*show.Show]
		var running sync.WaitGroup

		hooks.OnStart(func() {
			added, loadErr := loader.LoadFile(opts.ShowFile)
			switch {
			case errors.Is(loadErr, fs.ErrNotExist) && opts.ShowWatch:
				logger.Warn("Show file not found, waiting for it to be created", "path", opts.ShowFile)
			case loadErr != nil:
				logger.Error("Failed to load show", "path", opts.ShowFile, "error", loadErr)
				os.Exit(1)
			default:
				logger.Info("Show loaded", "path", opts.ShowFile, "animations", added)
				notifier.Status(fmt.Sprintf("%d animations scheduled from %s", added, opts.ShowFile))
			}

			if opts.ShowWatch {
				watcher = config.NewWatcher(opts.ShowFile, show.Load, logging.GetLogger("config"))
				watcher.OnReload(func(s *show.Show) {
					if _, applyErr := loader.Apply(opts.ShowFile, s); applyErr != nil {
						logger.Warn("Show reload rejected", "path", opts.ShowFile, "error", applyErr)
					}
				})
				if watchErr := watcher.Start(ctx); watchErr != nil {
					logger.Warn("Failed to watch show file", "path", opts.ShowFile, "error", watchErr)
				}
			}

			running.Add(1)
			go func() {
				defer running.Done()
				if runErr := dir.Run(ctx); runErr != nil {
					logger.Error("Director stopped", "frame", dir.Frame(), "error", runErr)
					output.Close()
					os.Exit(1)
				}
			}()

			notifier.Ready()
			go notifier.Watchdog(ctx, systemd.Progress(dir.Frame))

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()
			cancel()
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping show watcher", "error", stopErr)
				}
			}
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			running.Wait()
			dir.Close()
			if closeErr := output.Close(); closeErr != nil {
				logger.Warn("Error closing sinks", "error", closeErr)
			}
		})
	})

	cli.Root().Use = "ledsim"
	cli.Root().Short = "Animated LED strip scheduler and compositor"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateRenderCmd())
	cli.Root().AddCommand(cmd.CreateAnimationsCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}
