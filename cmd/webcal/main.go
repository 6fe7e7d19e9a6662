package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"webcal/internal/calendar"
	"webcal/internal/capture"
	"webcal/internal/config"
	"webcal/internal/grid"
	"webcal/internal/ics"
	appLog "webcal/internal/log"
	"webcal/internal/model"
	"webcal/internal/store"
	"webcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config; continuing with defaults", "config_path", flags.configPath, "err", err.Error())
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("webcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"default_view", conf.DefaultView,
		"import_count", len(conf.Import),
		"snapshot", flags.snapshot,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cal, err := newCalendar(ctx, conf, time.Now)
	if err != nil {
		appLog.Error("failed to build calendar", err)
		os.Exit(1)
	}

	if err := run(ctx, conf, cal, flags.snapshot); err != nil {
		appLog.Error("webcal exited with error", err)
		os.Exit(1)
	}
	appLog.Info("webcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/webcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Write a PNG of the calendar page to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

// newCalendar builds the store and controller from conf and loads the
// configured ICS sources. A failing source is logged and skipped.
func newCalendar(ctx context.Context, conf *config.Config, now func() time.Time) (*calendar.Calendar, error) {
	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
	}
	view, err := model.ParseView(conf.DefaultView)
	if err != nil {
		return nil, err
	}

	st := store.New(conf.Palette)
	if len(conf.Import) > 0 {
		sources := make([]ics.Source, 0, len(conf.Import))
		for _, imp := range conf.Import {
			id := imp.ID
			if id == "" {
				id = imp.Name
			}
			sources = append(sources, ics.Source{ID: id, Name: imp.Name, Path: imp.Path, URL: imp.URL})
		}
		window := ics.Window(now().In(loc), conf.ImportHorizonDays, loc)
		events, errs := ics.ImportAll(ctx, ics.NewFetcher(0), sources, window)
		if len(errs) > 0 {
			appLog.Error("one or more ICS sources failed", errors.Join(errs...), "error_count", len(errs))
		}
		added := st.Import(events)
		appLog.Info("ics import completed", "events", len(added))
	}

	return calendar.New(st, calendar.Options{
		Geometry: grid.Geometry{
			PxPerHour:      conf.PxPerHour,
			MinHeightPx:    conf.MinEventPx,
			MaxMonthEvents: conf.MonthMaxEvents,
			WeekStart:      conf.FirstWeekday(),
		},
		Palette:         conf.Palette,
		View:            view,
		Location:        loc,
		Now:             now,
		DesktopMinWidth: conf.DesktopMinWidth,
	}), nil
}

// startTicker refreshes the current-time indicator on conf.NowRefresh.
func startTicker(conf *config.Config, cal *calendar.Calendar) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(cal.Location()))
	_, err := c.AddFunc(conf.NowRefresh, func() {
		shown := cal.Tick(time.Now())
		appLog.Debug("now indicator refreshed", "visible", shown)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func run(ctx context.Context, conf *config.Config, cal *calendar.Calendar, snapshotPath string) error {
	ticker, err := startTicker(conf, cal)
	if err != nil {
		return err
	}
	defer ticker.Stop()

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, cal).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if snapshotPath == "" {
		return web.Serve(ctx, srv, ln)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- web.Serve(serveCtx, srv, ln) }()

	snapErr := capture.Snapshot(ctx, snapshotOptions(conf, ln.Addr().String(), snapshotPath))
	cancel()
	return errors.Join(snapErr, <-errCh)
}

// snapshotOptions points the capture at the local /calendar page, carrying
// the basic auth credentials the server will demand.
func snapshotOptions(conf *config.Config, addr, outputPath string) capture.Options {
	opts := capture.Options{
		URL:        "http://" + addr + "/calendar",
		OutputPath: outputPath,
	}
	if conf.BasicAuthEnabled() {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return opts
}
