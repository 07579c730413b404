package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/internal/config"
	"github.com/philipparndt/gopreview/internal/logging"
	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/loader"
	"github.com/philipparndt/gopreview/pkg/thumbnail"
	"github.com/philipparndt/gopreview/pkg/viewer"
	"github.com/philipparndt/gopreview/pkg/watcher"
	"github.com/philipparndt/gopreview/version"
)

type App struct {
	window  fyne.Window
	cfg     config.Config
	logger  *zap.Logger
	preview *viewer.Preview

	sliders map[string]*widget.Slider
	values  map[string]*widget.Label
	status  *widget.Label
	syncing bool

	mu      sync.Mutex
	path    string
	session *preview.Session
	cancel  context.CancelFunc
	watch   *watcher.FileWatcher
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolve(config.Flags{})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	a := app.New()
	w := a.NewWindow("gopreview " + version.GetVersion())

	gui := &App{
		window:  w,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "gui")),
		sliders: make(map[string]*widget.Slider),
		values:  make(map[string]*widget.Label),
		status:  widget.NewLabel("Open a model to start"),
	}
	gui.preview = viewer.NewPreview(gui)
	gui.setupUI()

	if len(os.Args) > 1 {
		gui.openFile(os.Args[1])
	}

	w.SetOnClosed(gui.shutdown)
	w.Resize(fyne.NewSize(1200, 800))
	w.ShowAndRun()
}

func (a *App) setupUI() {
	controls := container.NewVBox(widget.NewLabelWithStyle("View", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))

	for _, p := range preview.Params() {
		value := widget.NewLabel(formatParam(p, p.Default))
		slider := widget.NewSlider(p.Min, p.Max)
		slider.Step = p.Step
		slider.SetValue(p.Default)
		slider.OnChanged = func(v float64) {
			value.SetText(formatParam(p, v))
			if a.syncing {
				return
			}
			a.update(func(view preview.ViewState) preview.ViewState {
				return p.Set(view, v)
			})
		}
		a.sliders[p.Key] = slider
		a.values[p.Key] = value
		controls.Add(container.NewBorder(nil, nil, widget.NewLabel(p.Label), value))
		controls.Add(slider)
	}

	resetButton := widget.NewButton("Reset", a.reset)
	captureButton := widget.NewButton("Capture", a.capture)
	captureButton.Importance = widget.HighImportance
	cancelButton := widget.NewButton("Cancel", a.closePreview)
	openButton := widget.NewButton("Open File", a.showFileDialog)

	instructions := widget.NewLabel(
		"Drag to rotate, scroll to zoom, R resets the view.\n" +
			"C or Enter captures a thumbnail, Escape cancels.")
	instructions.Wrapping = fyne.TextWrapWord
	a.status.Wrapping = fyne.TextWrapWord

	controls.Add(widget.NewSeparator())
	controls.Add(container.NewGridWithColumns(3, resetButton, captureButton, cancelButton))
	controls.Add(openButton)
	controls.Add(widget.NewSeparator())
	controls.Add(instructions)
	controls.Add(layout.NewSpacer())
	controls.Add(a.status)

	side := container.NewVScroll(controls)
	side.SetMinSize(fyne.NewSize(300, 0))

	a.window.SetContent(container.NewBorder(nil, nil, nil, side, a.preview))
	a.window.Canvas().SetOnTypedKey(a.typedKey)
}

func (a *App) typedKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyEscape:
		a.closePreview()
	case fyne.KeyC, fyne.KeyReturn, fyne.KeyEnter:
		a.capture()
	case fyne.KeyR:
		a.reset()
	}
}

func formatParam(p preview.Param, v float64) string {
	if p.Step < 1 {
		return fmt.Sprintf("%.1f%s", v, p.Unit)
	}
	return fmt.Sprintf("%.0f%s", v, p.Unit)
}

func (a *App) showFileDialog() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		a.openFile(reader.URI().Path())
	}, a.window)
}

// openFile starts a new session for path and watches it for changes
func (a *App) openFile(path string) {
	a.stopSession()

	a.mu.Lock()
	a.path = path
	a.mu.Unlock()

	if err := a.startSession(); err != nil {
		dialog.ShowError(err, a.window)
		return
	}
	a.watchFile(path)
}

func (a *App) startSession() error {
	a.mu.Lock()
	path := a.path
	a.mu.Unlock()

	capturer, err := a.cfg.Capturer()
	if err != nil {
		return err
	}
	background, err := a.cfg.BackgroundColor()
	if err != nil {
		return err
	}

	var sess *preview.Session
	sess, err = preview.NewSession(preview.Options{
		ID:            filepath.Base(path),
		Width:         a.cfg.Render.Width,
		Height:        a.cfg.Render.Height,
		Background:    &background,
		Capturer:      capturer,
		LoadTimeout:   a.cfg.Load.Timeout,
		FrameInterval: a.cfg.FrameInterval(),
		Logger:        a.logger,
		Callbacks: preview.Callbacks{
			OnReady:     func(info preview.AssetInfo) { a.onReady(sess, info) },
			OnFrame:     func(frame *image.NRGBA) { a.preview.SetFrame(frame) },
			OnThumbnail: a.onThumbnail,
			OnClose:     func() { a.setStatus("Preview closed. Open a file to start again.") },
			OnError:     a.onError,
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.session = sess
	a.cancel = cancel
	a.mu.Unlock()

	go func() {
		_ = sess.Run(ctx)
	}()

	a.setStatus("Loading " + filepath.Base(path) + "...")
	return sess.Load(loader.NewFileSource(path))
}

func (a *App) watchFile(path string) {
	if !a.cfg.WatchEnabled() {
		return
	}
	fw, err := watcher.NewFileWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		a.logger.Warn("File watching disabled", zap.Error(err))
		return
	}
	resolve := func() ([]string, error) { return loader.WatchTargets(path, a.logger) }
	if err := fw.WatchResolved(resolve, func(string) { a.reload() }); err != nil {
		a.logger.Warn("File watching disabled", zap.Error(err))
		_ = fw.Close()
		return
	}
	fw.Start()

	a.mu.Lock()
	a.watch = fw
	a.mu.Unlock()
}

// reload replaces the asset in place. A session that ended with a load
// error is replaced by a new one.
func (a *App) reload() {
	sess := a.current()
	if sess == nil {
		return
	}
	if sess.Err() != nil {
		a.stopRun()
		if err := a.startSession(); err != nil {
			a.onError(err)
		}
		return
	}

	a.mu.Lock()
	path := a.path
	a.mu.Unlock()
	if err := sess.Load(loader.NewFileSource(path)); err != nil && !errors.Is(err, preview.ErrSessionClosed) {
		a.onError(err)
	}
}

func (a *App) current() *preview.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) update(fn func(preview.ViewState) preview.ViewState) {
	sess := a.current()
	if sess == nil {
		return
	}
	if err := sess.Update(fn); err != nil && !errors.Is(err, preview.ErrNotReady) && !errors.Is(err, preview.ErrSessionClosed) {
		a.setStatus(err.Error())
		return
	}
	a.syncSliders(sess.View())
}

// Orbit implements viewer.Controller
func (a *App) Orbit(dYaw, dPitch float64) {
	a.update(func(v preview.ViewState) preview.ViewState {
		v.Yaw = wrapDegrees(v.Yaw + dYaw)
		v.Pitch += dPitch
		return v
	})
}

// ZoomBy implements viewer.Controller
func (a *App) ZoomBy(factor float64) {
	a.update(func(v preview.ViewState) preview.ViewState {
		v.Zoom *= factor
		return v
	})
}

func wrapDegrees(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

func (a *App) reset() {
	a.update(func(preview.ViewState) preview.ViewState {
		return preview.DefaultViewState()
	})
}

func (a *App) capture() {
	sess := a.current()
	if sess == nil {
		return
	}
	if _, err := sess.Capture(); err != nil {
		a.setStatus("Capture failed: " + err.Error())
	}
}

func (a *App) closePreview() {
	if sess := a.current(); sess != nil {
		_ = sess.Close()
	}
}

func (a *App) onReady(sess *preview.Session, info preview.AssetInfo) {
	a.syncSliders(sess.View())
	a.setStatus(fmt.Sprintf("%s\n%d meshes, %d triangles\nSize: %.2f × %.2f × %.2f",
		info.Name, info.Meshes, info.Triangles, info.Size.X, info.Size.Y, info.Size.Z))
}

func (a *App) onThumbnail(t *thumbnail.Thumbnail) {
	out := a.cfg.Capture.Output
	if err := t.WriteFile(out); err != nil {
		a.onError(err)
		return
	}
	a.logger.Info("Thumbnail written", zap.String("path", out))
	fyne.Do(func() {
		dialog.ShowInformation("Thumbnail", fmt.Sprintf("Saved %s (%d×%d)", out, t.Width, t.Height), a.window)
	})
}

func (a *App) onError(err error) {
	fyne.Do(func() {
		dialog.ShowError(err, a.window)
	})
	a.setStatus(err.Error())
}

func (a *App) setStatus(text string) {
	fyne.Do(func() {
		a.status.SetText(text)
	})
}

func (a *App) syncSliders(v preview.ViewState) {
	fyne.Do(func() {
		a.syncing = true
		defer func() { a.syncing = false }()
		for _, p := range preview.Params() {
			if s, ok := a.sliders[p.Key]; ok {
				s.SetValue(p.Get(v))
			}
		}
	})
}

// stopRun ends the render loop of the current session
func (a *App) stopRun() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()
}

func (a *App) stopSession() {
	a.stopRun()

	a.mu.Lock()
	sess, fw := a.session, a.watch
	a.session, a.watch = nil, nil
	a.mu.Unlock()

	if fw != nil {
		_ = fw.Close()
	}
	if sess != nil {
		_ = sess.Close()
	}
}

func (a *App) shutdown() {
	a.stopSession()
}
