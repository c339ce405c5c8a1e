// Package browser drives a live dashboard page in Chrome through chromedp.
// Regions are written by replacing element innerHTML and charts are mounted
// with Chart.js inside the page.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/utils"
)

type Page struct {
	logger      *utils.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	config      *utils.Config
	perfTracker *utils.PerformanceTracker
	mu          sync.Mutex
}

// NewPage launches Chrome with the configured flags.
func NewPage(logger *utils.Logger, config *utils.Config, tracker *utils.PerformanceTracker) (*Page, error) {
	logger.Debug("Initializing Chrome")
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("headless", config.Browser.Headless),
		chromedp.Flag("enable-logging", config.Browser.Debug),
		chromedp.WindowSize(1280, 2000),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debug))
	cancel := func() {
		ctxCancel()
		allocCancel()
	}

	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		logger.Error("Failed to launch browser: %v", err)
		cancel()
		return nil, err
	}

	return &Page{
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		perfTracker: tracker,
	}, nil
}

// Open navigates to the dashboard shell and waits for its regions.
func (p *Page) Open(url string) error {
	// Accept any alert/confirm the page raises so it cannot block evaluation.
	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		if ev, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			p.logger.Debug("Dialog detected: %s", ev.Message)
			go func() {
				if err := chromedp.Run(p.ctx, page.HandleJavaScriptDialog(true)); err != nil {
					p.logger.Debug("Failed to handle dialog: %v", err)
				}
			}()
		}
	})

	defer p.perfTracker.StartStep("browser:open")()

	p.mu.Lock()
	defer p.mu.Unlock()
	err := chromedp.Run(p.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("#"+dashboard.RegionMovingAverage),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate: %v", err)
	}
	return nil
}

// Region returns a sink that replaces the innerHTML of the element with that id.
func (p *Page) Region(id string) dashboard.OutputSink {
	return &regionSink{page: p, id: id}
}

type regionSink struct {
	page *Page
	id   string
}

func (r *regionSink) Render(ctx context.Context, content template.HTML) error {
	script, err := setContentScript(r.id, string(content))
	if err != nil {
		return err
	}

	var found bool
	if err := r.page.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("failed to write #%s: %v", r.id, err)
	}
	if !found {
		return fmt.Errorf("element #%s not found", r.id)
	}
	return nil
}

// RenderChart mounts a Chart.js line chart on the canvas targetID.
func (p *Page) RenderChart(ctx context.Context, targetID string, dates []string, prices []float64) {
	script, err := mountChartScript(targetID, chart.NewConfig(dates, prices))
	if err != nil {
		p.logger.Error("Failed to build chart for %s: %v", targetID, err)
		return
	}

	var mounted bool
	if err := p.run(ctx, chromedp.Evaluate(script, &mounted)); err != nil {
		p.logger.Error("Failed to mount chart on %s: %v", targetID, err)
		return
	}
	if !mounted {
		p.logger.Error("Canvas %s missing or Chart.js not loaded", targetID)
	}
}

// run evaluates actions in the page tab. The caller's ctx only bounds how
// long we wait; the actions always target the page's own browser context.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func setContentScript(id, html string) (string, error) {
	idJSON, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	htmlJSON, err := json.Marshal(html)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		(() => {
			const el = document.getElementById(%s);
			if (!el) return false;
			el.innerHTML = %s;
			return true;
		})()
	`, idJSON, htmlJSON), nil
}

func mountChartScript(id string, cfg chart.Config) (string, error) {
	idJSON, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	cfgJSON, err := cfg.JSON()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		(() => {
			const el = document.getElementById(%s);
			if (!el || typeof Chart === "undefined") return false;
			new Chart(el.getContext('2d'), %s);
			return true;
		})()
	`, idJSON, cfgJSON), nil
}

// SaveHTML writes the live DOM to path.
func (p *Page) SaveHTML(path string) error {
	var html string
	if err := p.run(p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to read page: %v", err)
	}
	return writeFile(path, []byte(html))
}

// Screenshot writes a full-page PNG to path.
func (p *Page) Screenshot(path string) error {
	var buf []byte
	if err := p.run(p.ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %v", err)
	}
	return writeFile(path, buf)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	return nil
}

func (p *Page) Close() {
	p.logger.Debug("Closing browser")
	if p.cancel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		done := make(chan struct{})
		go func() {
			if err := chromedp.Cancel(p.ctx); err != nil {
				p.logger.Debug("Error during graceful shutdown: %v", err)
			}
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}

		p.cancel()
		p.logger.Debug("Browser closed")
	}
}

// PreflightCheck verifies the configuration, the browser and the dashboard
// shell at shellURL before any view loads.
func (p *Page) PreflightCheck(shellURL string) error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"Config Validation", p.config.Validate},
		{"Directory Structure", p.checkDirectories},
		{"Browser Launch", p.testBrowserLaunch},
		{"Dashboard Shell", func() error { return p.testShell(shellURL) }},
	}

	for _, c := range checks {
		p.logger.Debug("Running preflight check: %s", c.name)
		if err := c.check(); err != nil {
			return fmt.Errorf("%s check failed: %v", c.name, err)
		}
		p.logger.Debug("%s check passed", c.name)
	}

	return nil
}

func (p *Page) checkDirectories() error {
	for _, dir := range []string{p.config.Output.Dir, p.config.Output.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %v", dir, err)
		}
	}
	return nil
}

func (p *Page) testBrowserLaunch() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return p.run(ctx, chromedp.Navigate("about:blank"))
}

// shellStatus is what shellScript reports about a loaded page.
type shellStatus struct {
	Missing []string `json:"missing"`
	ChartJS bool     `json:"chartjs"`
}

// testShell loads the shell and checks that every region is present. A page
// without Chart.js still renders its views, so that only gets logged.
func (p *Page) testShell(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	script, err := shellScript(dashboard.Regions())
	if err != nil {
		return err
	}

	var status shellStatus
	if err := p.run(ctx, chromedp.Navigate(url), chromedp.Evaluate(script, &status)); err != nil {
		return fmt.Errorf("failed to load %s: %v", url, err)
	}
	return p.checkShell(status)
}

func (p *Page) checkShell(status shellStatus) error {
	if len(status.Missing) > 0 {
		return fmt.Errorf("shell is missing regions %v", status.Missing)
	}
	if !status.ChartJS {
		p.logger.Error("Chart.js did not load; trend charts will be skipped")
	}
	return nil
}

func shellScript(regions []string) (string, error) {
	idsJSON, err := json.Marshal(regions)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		(() => ({
			missing: %s.filter(id => !document.getElementById(id)),
			chartjs: typeof Chart !== "undefined",
		}))()
	`, idsJSON), nil
}
