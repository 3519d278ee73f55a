package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dailydigest/internal/config"
	"dailydigest/internal/digest"
	appLog "dailydigest/internal/log"
	"dailydigest/internal/planner"
	"dailydigest/internal/pushover"
	"dailydigest/internal/weather"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	dryRun     bool
	initConfig bool
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()

	if flags.initConfig {
		if err := config.Save(flags.configPath, config.DefaultConfig()); err != nil {
			appLog.Error("failed to write config", err, "config_path", flags.configPath)
			return 1
		}
		appLog.Info("wrote default config", "config_path", flags.configPath)
		return 0
	}

	conf, err := config.Load(flags.configPath, flags.envPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}

	level, err := appLog.ParseLevel(conf.Log.Level)
	if err != nil {
		appLog.Error("invalid log level, using INFO", err)
		level = appLog.LevelInfo
	}
	appLog.SetLevel(level)
	appLog.SetFile(conf.Log.File)
	defer appLog.Close()

	appLog.Info("effective config",
		"city", conf.Weather.City,
		"unit", conf.Weather.Unit,
		"days_ahead", conf.DaysAhead,
		"timezone", conf.Timezone,
		"canvas_host", conf.Canvas.URL,
		"html", conf.Pushover.HTML,
		"dry_run", flags.dryRun,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := digest.NewRunner(
		digest.Options{
			City:      conf.Weather.City,
			DaysAhead: conf.DaysAhead,
			Location:  conf.Location(),
			HTML:      conf.Pushover.HTML,
			DryRun:    flags.dryRun,
		},
		weather.NewClient(weather.Options{
			GeocodeURL:  conf.Weather.GeocodeURL,
			ForecastURL: conf.Weather.ForecastURL,
			Unit:        conf.Weather.Unit,
			Attempts:    conf.Weather.Attempts,
		}),
		planner.NewClient(conf.Canvas.URL, conf.Canvas.Token),
		pushover.NewClient(conf.Pushover.URL, conf.Pushover.Token, conf.Pushover.User),
		os.Stdout,
	)

	if _, err := runner.Run(ctx); err != nil {
		appLog.Error("digest run failed", err)
		return 1
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "dailydigest.yaml", "Path to optional YAML config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to optional dotenv file")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Compose and print the digest without sending it")
	flag.BoolVar(&cfg.initConfig, "init-config", false, "Write a default config file to -config and exit")

	flag.Parse()

	return cfg
}
