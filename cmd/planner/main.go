package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"planner/internal/config"
	appLog "planner/internal/log"
	"planner/internal/planner"
	"planner/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool

	// One-shot modes; the first one set wins and the process exits.
	date     string
	agenda   bool
	upcoming int
	summary  bool
	export   string
	importFr string
}

func (f flagConfig) oneShot() bool {
	return f.date != "" || f.agenda || f.upcoming >= 0 || f.summary || f.export != "" || f.importFr != ""
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"horizon_days", conf.HorizonDays,
		"export_path", conf.Export.Path,
		"export_cron", conf.Export.Cron,
		"basic_auth", conf.BasicAuth != nil,
	)

	svc, err := planner.OpenConfig(conf)
	if err != nil {
		appLog.Error("failed to open planner", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.oneShot() {
		if err := runOnce(ctx, os.Stdout, svc, flags); err != nil {
			appLog.Error("command failed", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, svc); err != nil {
		appLog.Error("server failed", err)
		os.Exit(1)
	}
	appLog.Info("planner exiting")
}

// serve runs the API and the periodic ICS export until ctx is cancelled.
func serve(ctx context.Context, conf *config.Config, svc *planner.Service) error {
	c := cron.New()
	if conf.Export.Path != "" {
		exportJob := func() {
			if err := svc.WriteExport(conf.Export.Path); err != nil {
				appLog.Error("scheduled ics export failed", err, "path", conf.Export.Path)
			}
		}
		if _, err := c.AddFunc(conf.Export.Cron, exportJob); err != nil {
			return err
		}
		exportJob()
		appLog.Info("ics export scheduled", "cron", conf.Export.Cron, "path", conf.Export.Path)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	return web.NewServer(conf, svc).ListenAndServe(ctx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Log at debug level")

	flag.StringVar(&cfg.date, "date", "", "Print the overview of a date (YYYY-MM-DD) and exit")
	flag.BoolVar(&cfg.agenda, "agenda", false, "Print today's and tomorrow's schedule and exit")
	flag.IntVar(&cfg.upcoming, "upcoming", -1, "Print tasks and events of the next N days and exit")
	flag.BoolVar(&cfg.summary, "summary", false, "Print weekly minutes per event and exit")
	flag.StringVar(&cfg.export, "export", "", "Write the timetable as ICS to this path and exit")
	flag.StringVar(&cfg.importFr, "import", "", "Import weekly events from an ICS file or URL and exit")

	flag.Parse()

	return cfg
}
