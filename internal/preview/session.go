// Package preview implements the model preview session: it loads an asset,
// frames it, applies view changes and captures thumbnails.
//
// All session state is owned by one mutex. The asset load runs on its own
// goroutine and re-enters through a generation check, so results that arrive
// after a newer Load or after Close are dropped. Callbacks always run after
// the lock is released.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/internal/metrics"
	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/philipparndt/gopreview/pkg/loader"
	"github.com/philipparndt/gopreview/pkg/scene"
	"github.com/philipparndt/gopreview/pkg/thumbnail"
)

const (
	DefaultWidth         = 800
	DefaultHeight        = 600
	DefaultLoadTimeout   = 30 * time.Second
	DefaultFrameInterval = time.Second / 60
)

// DefaultBackground is the clear color of the preview
var DefaultBackground = color.NRGBA{R: 0x0f, G: 0x12, B: 0x19, A: 0xff}

// State is the lifecycle state of a session
type State int

const (
	Loading State = iota
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// AssetInfo describes the asset a session displays
type AssetInfo struct {
	Name string
	// Center and Size are the bounds before normalization.
	Center            geometry.Vector3
	Size              geometry.Vector3
	Scale             float64
	ReferenceDistance float64
	Meshes            int
	Triangles         int
	// UnlitMaterials counts the lit materials replaced on load.
	UnlitMaterials int
}

// Callbacks are invoked outside the session lock. Any of them may be nil.
type Callbacks struct {
	OnReady     func(AssetInfo)
	OnFrame     func(*image.NRGBA)
	OnThumbnail func(*thumbnail.Thumbnail)
	OnClose     func()
	OnError     func(error)
}

// Options configure a session
type Options struct {
	// ID names the session in logs.
	ID string
	// Loader parses sources; defaults to the extension registry.
	Loader loader.Loader
	// Surface acquires the render target; defaults to the software rasterizer.
	Surface SurfaceFactory
	Width   int
	Height  int
	// Background is the clear color; nil selects DefaultBackground and a
	// zero alpha leaves empty pixels transparent.
	Background *color.NRGBA
	// Capturer encodes thumbnails; defaults to lossless WebP at 1024 px.
	Capturer      *thumbnail.Capturer
	LoadTimeout   time.Duration
	FrameInterval time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Collector
	Callbacks     Callbacks
}

func (o *Options) applyDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Background == nil {
		bg := DefaultBackground
		o.Background = &bg
	}
	if o.Loader == nil {
		o.Loader = loader.NewRegistry(o.Logger)
	}
	if o.Surface == nil {
		o.Surface = RasterSurface(*o.Background, o.Logger)
	}
	if o.Capturer == nil {
		o.Capturer = thumbnail.NewCapturer()
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = DefaultLoadTimeout
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = DefaultFrameInterval
	}
}

// Session is one preview of one asset
type Session struct {
	mu sync.Mutex

	id        string
	loader    loader.Loader
	surface   Surface
	capturer  *thumbnail.Capturer
	logger    *zap.Logger
	metrics   *metrics.Collector
	callbacks Callbacks

	loadTimeout   time.Duration
	frameInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	state         State
	generation    uint64
	cancelLoad    context.CancelFunc
	root          *scene.Node
	pivot         *scene.Node
	camera        *scene.Camera
	view          ViewState
	refDistance   float64
	asset         AssetInfo
	err           error
	version       uint64
	closeNotified bool
}

// NewSession acquires the render surface and returns a session in the
// Loading state. A surface failure is returned as *RenderResourceError.
func NewSession(opts Options) (*Session, error) {
	opts.applyDefaults()

	surface, err := opts.Surface(opts.Width, opts.Height)
	if err != nil {
		return nil, &RenderResourceError{Width: opts.Width, Height: opts.Height, Err: err}
	}
	if surface == nil {
		return nil, &RenderResourceError{Width: opts.Width, Height: opts.Height, Err: errors.New("no surface")}
	}

	logger := opts.Logger.With(zap.String("component", "preview"))
	if opts.ID != "" {
		logger = logger.With(zap.String("session", opts.ID))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:            opts.ID,
		loader:        opts.Loader,
		surface:       surface,
		capturer:      opts.Capturer,
		logger:        logger,
		metrics:       opts.Metrics,
		callbacks:     opts.Callbacks,
		loadTimeout:   opts.LoadTimeout,
		frameInterval: opts.FrameInterval,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		state:         Loading,
		view:          DefaultViewState(),
	}
	s.metrics.SessionOpened()
	return s, nil
}

// ID returns the session id given in Options
func (s *Session) ID() string { return s.id }

// Done is closed when the session enters Closed
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the current view state
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Camera returns a snapshot of the camera, or nil before the first load
func (s *Session) Camera() *scene.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.camera == nil {
		return nil
	}
	c := *s.camera
	return &c
}

// ReferenceDistance is the framing distance of the loaded asset
func (s *Session) ReferenceDistance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refDistance
}

// Asset describes the loaded asset
func (s *Session) Asset() AssetInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset
}

// Err returns the load error that closed the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Version increments with every rendered frame
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Frame returns a copy of the last rendered frame, or nil when closed
func (s *Session) Frame() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return nil
	}
	return s.surface.Frame()
}

// Load starts loading src in the background. While Ready, the current asset
// stays on screen until the new one resolves and keeps its view state.
func (s *Session) Load(src loader.Source) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithTimeout(s.ctx, s.loadTimeout)
	s.cancelLoad = cancel
	s.mu.Unlock()

	s.logger.Info("Loading asset", zap.String("source", src.Name()), zap.Uint64("generation", gen))
	start := time.Now()
	loader.Async(ctx, s.loader, src, func(root *scene.Node, err error) {
		cancel()
		s.finishLoad(gen, src, start, root, err)
	})
	return nil
}

func (s *Session) finishLoad(gen uint64, src loader.Source, start time.Time, root *scene.Node, err error) {
	elapsed := time.Since(start)

	s.mu.Lock()
	if s.state == Closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Dropping stale load result",
			zap.String("source", src.Name()),
			zap.Uint64("generation", gen))
		return
	}
	s.cancelLoad = nil

	var info AssetInfo
	if err == nil {
		info, err = s.installLocked(src.Name(), root)
		if err != nil {
			err = &loader.LoadError{Source: src.Name(), Reason: loader.ReasonParse, Err: err}
		}
	}

	if err != nil {
		s.err = err
		s.closeLocked(false)
		s.mu.Unlock()

		result := "error"
		var le *loader.LoadError
		if errors.As(err, &le) {
			result = le.Reason.String()
		}
		s.metrics.RecordLoad(result, elapsed)
		s.logger.Error("Failed to load asset", zap.String("source", src.Name()), zap.Error(err))
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(err)
		}
		return
	}

	frame := s.renderLocked()
	s.mu.Unlock()

	s.metrics.RecordLoad("ok", elapsed)
	s.logger.Info("Asset ready",
		zap.String("source", src.Name()),
		zap.Float64("scale", info.Scale),
		zap.Float64("reference_distance", info.ReferenceDistance),
		zap.Int("triangles", info.Triangles),
		zap.Duration("elapsed", elapsed))

	if s.callbacks.OnReady != nil {
		s.callbacks.OnReady(info)
	}
	s.emitFrame(frame)
}

// installLocked normalizes root and frames the camera on it. The reference
// distance is computed at the base FOV; the camera then takes the FOV of the
// view's focal length. The first asset starts from the default view; a
// replacement keeps the current one.
func (s *Session) installLocked(name string, root *scene.Node) (AssetInfo, error) {
	if root == nil {
		return AssetInfo{}, errors.New("loader returned no scene")
	}

	unlit := scene.MakeUnlit(root)
	norm, err := scene.Normalize(root, TargetSize)
	if err != nil {
		return AssetInfo{}, err
	}

	ref := FramingDistance(norm.MaxDimension(), norm.Scale, BaseFOV)
	cam := scene.NewCamera(BaseFOV)
	cam.Position = geometry.NewVector3(0, 0, ref)
	cam.LookAt(geometry.Vector3{})

	world := scene.NewNode("preview")
	world.Add(norm.Pivot)

	triangles := 0
	meshes := root.Meshes()
	for _, m := range meshes {
		triangles += m.TriangleCount()
	}

	reload := s.state == Ready
	s.root = world
	s.pivot = norm.Pivot
	s.camera = cam
	s.refDistance = ref
	s.asset = AssetInfo{
		Name:              name,
		Center:            norm.Center,
		Size:              norm.Size,
		Scale:             norm.Scale,
		ReferenceDistance: ref,
		Meshes:            len(meshes),
		Triangles:         triangles,
		UnlitMaterials:    unlit,
	}
	s.state = Ready

	if !reload {
		s.view = DefaultViewState()
	}
	// The fresh camera and pivot take the whole view, focal length included.
	frame := FrameFor(s.view, ref)
	s.pivot.Transform.Rotation = frame.Rotation
	cam.FOV = frame.FOV
	cam.Dolly(frame.Distance)
	cam.LookAt(geometry.Vector3{})
	return s.asset, nil
}

// Apply replaces the view state and renders one frame
func (s *Session) Apply(v ViewState) error {
	nv, err := v.Normalized()
	if err != nil {
		return err
	}
	return s.update(func(ViewState) ViewState { return nv })
}

// Update applies fn to the current view state under the session lock
func (s *Session) Update(fn func(ViewState) ViewState) error {
	return s.update(fn)
}

// Reset restores the default view in a single update
func (s *Session) Reset() error {
	return s.Apply(DefaultViewState())
}

func (s *Session) update(fn func(ViewState) ViewState) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	next, err := fn(s.view).Normalized()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	prev := s.view
	s.view = next
	s.placeLocked(next, prev)
	frame := s.renderLocked()
	s.mu.Unlock()

	s.emitFrame(frame)
	return nil
}

// placeLocked moves the pivot and camera for the fields of next that differ
// from prev
func (s *Session) placeLocked(next, prev ViewState) {
	if next.rotationDiffers(prev) {
		s.pivot.Transform.Rotation = AssetRotation(next)
	}
	if next.Zoom != prev.Zoom {
		s.camera.Dolly(ZoomDistance(s.refDistance, next.Zoom))
		s.camera.LookAt(geometry.Vector3{})
	}
	if next.FocalLength != prev.FocalLength {
		s.camera.FOV = FocalLengthToFOV(next.FocalLength)
		s.camera.LookAt(geometry.Vector3{})
	}
}

func (s *Session) readyLocked() error {
	switch s.state {
	case Closed:
		return ErrSessionClosed
	case Loading:
		return ErrNotReady
	}
	return nil
}

// RenderFrame draws the current scene. It is safe to call at any rate.
func (s *Session) RenderFrame() error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	frame := s.renderLocked()
	s.mu.Unlock()

	s.emitFrame(frame)
	return nil
}

// renderLocked draws one frame and returns a copy for OnFrame when that
// callback is set
func (s *Session) renderLocked() *image.NRGBA {
	if err := s.surface.Render(s.root, s.camera); err != nil {
		s.logger.Warn("Render failed", zap.Error(err))
		return nil
	}
	s.version++
	s.metrics.RecordFrame()
	if s.callbacks.OnFrame == nil {
		return nil
	}
	return s.surface.Frame()
}

func (s *Session) emitFrame(frame *image.NRGBA) {
	if frame != nil && s.callbacks.OnFrame != nil {
		s.callbacks.OnFrame(frame)
	}
}

// Run renders periodically until ctx ends or the session closes
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			if err := s.RenderFrame(); errors.Is(err, ErrSessionClosed) {
				return nil
			}
		}
	}
}

// Capture renders the current view, encodes it at the capture size, hands
// the thumbnail to OnThumbnail and closes the session. When no canvas can be
// obtained nothing is called back, the session stays open and
// ErrCaptureUnavailable is returned.
func (s *Session) Capture() (*thumbnail.Thumbnail, error) {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	frame := s.renderLocked()
	thumb, err := s.capturer.Capture(s.surface.Frame())
	if err != nil {
		s.mu.Unlock()
		s.emitFrame(frame)

		if errors.Is(err, thumbnail.ErrCanvasUnavailable) {
			s.metrics.RecordCapture("unavailable")
			s.logger.Warn("Capture unavailable", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
		}
		s.metrics.RecordCapture("error")
		s.logger.Error("Capture failed", zap.Error(err))
		return nil, fmt.Errorf("capture: %w", err)
	}

	notify := s.closeLocked(true)
	s.mu.Unlock()

	s.metrics.RecordCapture("ok")
	s.logger.Info("Captured thumbnail",
		zap.Int("width", thumb.Width),
		zap.Int("height", thumb.Height),
		zap.String("format", thumb.Format),
		zap.Int("bytes", len(thumb.Data)))

	s.emitFrame(frame)
	if s.callbacks.OnThumbnail != nil {
		s.callbacks.OnThumbnail(thumb)
	}
	if notify && s.callbacks.OnClose != nil {
		s.callbacks.OnClose()
	}
	return thumb, nil
}

// Close ends the session. It cancels an in-flight load, releases the render
// surface and fires OnClose once. Calling it again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	notify := s.closeLocked(true)
	s.mu.Unlock()

	if notify && s.callbacks.OnClose != nil {
		s.callbacks.OnClose()
	}
	return nil
}

// closeLocked tears the session down once and reports whether OnClose is
// due. The load error path tears down without notifying.
func (s *Session) closeLocked(notify bool) bool {
	if s.state != Closed {
		s.state = Closed
		s.generation++
		if s.cancelLoad != nil {
			s.cancelLoad()
			s.cancelLoad = nil
		}
		s.cancel()
		if err := s.surface.Close(); err != nil {
			s.logger.Warn("Failed to release render surface", zap.Error(err))
		}
		close(s.done)
		s.metrics.SessionClosed()
		s.logger.Debug("Session closed")
	}

	if notify && !s.closeNotified {
		s.closeNotified = true
		return true
	}
	return false
}
