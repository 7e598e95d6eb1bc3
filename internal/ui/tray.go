package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
)

type Tray struct {
	catalogSvc catalog.CatalogService
	runner     *catalog.Runner
	logger     *slog.Logger

	statusItem   *systray.MenuItem
	sessionsItem *systray.MenuItem
	videosItem   *systray.MenuItem
	pauseItem    *systray.MenuItem

	mu    sync.Mutex
	ready bool

	onQuit func()
}

type TrayConfig struct {
	CatalogService catalog.CatalogService
	Runner         *catalog.Runner
	Logger         *slog.Logger
	OnQuit         func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		catalogSvc: cfg.CatalogService,
		runner:     cfg.Runner,
		logger:     cfg.Logger,
		onQuit:     cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	if icon, err := iconPNG(); err != nil {
		t.logger.Warn("failed to render tray icon", "error", err)
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle("Heimdex")
	systray.SetTooltip("Heimdex Annotator")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem("Status: Idle", "Current annotator status")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem(sessionsLabel(0), "Open review sessions")
	t.sessionsItem.Disable()

	t.videosItem = systray.AddMenuItem("Videos: 0", "Videos in the catalog")
	t.videosItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Probing", "Pause background media probing")
	probeItem := systray.AddMenuItem("Probe Now", "Read metadata for unprobed videos")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Annotator")
	t.ready = true
	t.mu.Unlock()

	t.refreshVideos()

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-probeItem.ClickedCh:
				t.probeNow()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause Probing")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume Probing")
		t.statusItem.SetTitle("Status: Probing paused")
	}
}

func (t *Tray) probeNow() {
	if t.runner == nil {
		return
	}
	t.UpdateStatus("Probing")
	n := t.runner.ProbePending(context.Background())
	t.logger.Info("manual probe finished", "probed", n)
	t.UpdateStatus("Idle")
	t.refreshVideos()
}

func (t *Tray) refreshVideos() {
	if t.catalogSvc == nil {
		return
	}
	videos, err := t.catalogSvc.ListVideos(context.Background())
	if err != nil {
		t.logger.Warn("failed to list videos for tray", "error", err)
		return
	}
	var total int64
	for _, v := range videos {
		total += v.Size
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		t.videosItem.SetTitle(fmt.Sprintf("Videos: %d (%s)", len(videos), humanize.Bytes(uint64(total))))
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.ready {
		return
	}
	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

// UpdateSessions is registered as the session manager's change callback.
func (t *Tray) UpdateSessions(count int) {
	t.mu.Lock()
	if t.ready {
		t.sessionsItem.SetTitle(sessionsLabel(count))
	}
	t.mu.Unlock()

	if count > 0 {
		t.UpdateStatus("Reviewing")
	} else {
		t.UpdateStatus("Idle")
	}
	t.refreshVideos()
}

func sessionsLabel(count int) string {
	if count == 0 {
		return "Sessions: none"
	}
	return fmt.Sprintf("Sessions: %d open", count)
}

func (t *Tray) Quit() {
	systray.Quit()
}
