// Package main provides the entry point for the stock analytics dashboard.
// It renders the analytics views either into a static HTML snapshot, into a
// live Chrome page driven by chromedp, or serves them over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stockdash/internal/browser"
	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/sink"
	"stockdash/internal/utils"
	"stockdash/visualization"
)

type app struct {
	logger  *utils.Logger
	config  *utils.Config
	tracker *utils.PerformanceTracker
	client  *dashboard.Client
}

// loadViews runs either every view or just the named one against d.
func loadViews(ctx context.Context, d *dashboard.Dashboard, view string) error {
	if view == "all" {
		d.LoadAll(ctx)
		return nil
	}
	return d.Load(ctx, view)
}

// runStatic renders into an in-memory document and writes the page to out.
func (a *app) runStatic(ctx context.Context, view, out string) error {
	doc := sink.NewDocument()
	charts := chart.NewRecorder()
	d := dashboard.New(dashboard.Deps{
		Client:  a.client,
		Surface: doc,
		Charts:  charts,
		Logger:  a.logger,
		Tracker: a.tracker,
	})

	if err := loadViews(ctx, d, view); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", out, err)
	}
	defer file.Close()

	if err := doc.WritePage(file, visualization.PageTitle, charts.Charts()); err != nil {
		return fmt.Errorf("failed to write page: %v", err)
	}
	a.logger.Info("Dashboard snapshot saved to %s", out)
	return nil
}

// runBrowser serves the shell page on a loopback port and fills it in Chrome.
func (a *app) runBrowser(ctx context.Context, view, out, screenshot string) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %v", err)
	}
	srv := &http.Server{Handler: visualization.NewServer(a.client, a.logger, a.tracker).Handler()}
	go srv.Serve(listener)
	defer srv.Close()

	p, err := browser.NewPage(a.logger, a.config, a.tracker)
	if err != nil {
		return err
	}
	defer p.Close()

	shellURL := fmt.Sprintf("http://%s/shell", listener.Addr())
	if err := p.PreflightCheck(shellURL); err != nil {
		return fmt.Errorf("preflight check failed: %v", err)
	}

	if err := p.Open(shellURL); err != nil {
		return err
	}

	d := dashboard.New(dashboard.Deps{
		Client:  a.client,
		Surface: p,
		Charts:  p,
		Logger:  a.logger,
		Tracker: a.tracker,
	})
	if err := loadViews(ctx, d, view); err != nil {
		return err
	}

	if out != "" {
		if err := p.SaveHTML(out); err != nil {
			return err
		}
		a.logger.Info("Live page saved to %s", out)
	}
	if screenshot != "" {
		if err := p.Screenshot(screenshot); err != nil {
			return err
		}
		a.logger.Info("Screenshot saved to %s", screenshot)
	}
	return nil
}

// runServe serves the dashboard until SIGINT or SIGTERM.
func (a *app) runServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.config.Server.Addr,
		Handler: visualization.NewServer(a.client, a.logger, a.tracker).Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server on %s", a.config.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %v", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	startTime := time.Now()

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}

	// Define and parse command-line flags
	configPath := flag.String("config", defaultConfig, "Path to the YAML configuration")
	mode := flag.String("mode", "static", "static, browser or serve")
	view := flag.String("view", "all", "View to load: all, auto_trends, momentum, high_low_performers, moving_average")
	out := flag.String("out", "", "Where to save the rendered page (default <output.dir>/dashboard.html)")
	screenshot := flag.String("screenshot", "", "PNG path for a full-page screenshot (browser mode)")
	flag.Parse()

	config, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(config.Output.Logs, config.Browser.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Info("Starting stock dashboard in %s mode", *mode)

	if err := config.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	if *out == "" {
		*out = filepath.Join(config.Output.Dir, "dashboard.html")
	}

	a := &app{
		logger:  logger,
		config:  config,
		tracker: utils.NewPerformanceTracker(),
		client:  dashboard.NewClient(config.Backend.BaseURL, time.Duration(config.Backend.Timeout)*time.Second),
	}

	ctx := context.Background()
	switch *mode {
	case "static":
		err = a.runStatic(ctx, *view, *out)
	case "browser":
		err = a.runBrowser(ctx, *view, *out, *screenshot)
	case "serve":
		err = a.runServe(ctx)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Fatal("Dashboard failed: %v", err)
	}

	logger.Info("Aggregate Performance Report:\n%s", a.tracker.GenerateAggregateReport())
	logger.Info("Total execution time: %v", time.Since(startTime).Round(time.Millisecond))
}
