package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/loader"
	"github.com/philipparndt/gopreview/pkg/thumbnail"
)

const writeTimeout = 10 * time.Second

// client is one WebSocket connection and its preview session
type client struct {
	id     string
	srv    *Server
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	// dirty coalesces frame notifications for the frame writer.
	dirty chan struct{}

	mu      sync.Mutex
	session *preview.Session
	failed  bool
	sent    uint64
	closing bool
}

func newClient(s *Server, conn *websocket.Conn) *client {
	id := uuid.NewString()
	return &client{
		id:     id,
		srv:    s,
		conn:   conn,
		logger: s.logger.With(zap.String("client", id)),
		dirty:  make(chan struct{}, 1),
	}
}

func (c *client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.writeFrames(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return c.readLoop()
	})
	if err := g.Wait(); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Debug("Connection ended", zap.Error(err))
	}
}

// start opens a new session and begins loading the configured source
func (c *client) start() {
	cfg := c.srv.cfg
	sess, err := preview.NewSession(preview.Options{
		ID:            c.id,
		Loader:        cfg.Loader,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Background:    cfg.Background,
		Capturer:      cfg.Capturer,
		LoadTimeout:   cfg.LoadTimeout,
		FrameInterval: cfg.FrameInterval,
		Logger:        cfg.Logger,
		Metrics:       cfg.Metrics,
		Callbacks: preview.Callbacks{
			OnReady:     c.onReady,
			OnFrame:     c.onFrame,
			OnThumbnail: c.onThumbnail,
			OnClose:     c.onClose,
			OnError:     c.onError,
		},
	})
	if err != nil {
		c.logger.Error("Failed to open session", zap.Error(err))
		c.sendError(err, true)
		return
	}

	c.mu.Lock()
	c.session = sess
	c.failed = false
	c.sent = 0
	c.mu.Unlock()

	if err := sess.Load(cfg.Source); err != nil {
		c.sendError(err, true)
	}
}

func (c *client) reload() {
	c.mu.Lock()
	sess, failed, closing := c.session, c.failed, c.closing
	c.mu.Unlock()

	if closing {
		return
	}
	if sess == nil || failed {
		c.start()
		return
	}
	if err := sess.Load(c.srv.cfg.Source); err != nil && !errors.Is(err, preview.ErrSessionClosed) {
		c.sendError(err, false)
	}
}

func (c *client) current() *preview.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *client) readLoop() error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(fmt.Errorf("invalid message: %w", err), false)
			continue
		}
		if err := c.handle(msg); err != nil {
			c.logger.Debug("Message rejected", zap.String("type", msg.Type), zap.Error(err))
			c.sendError(err, false)
		}
	}
}

func (c *client) handle(msg inbound) error {
	sess := c.current()
	if sess == nil {
		return preview.ErrSessionClosed
	}

	switch msg.Type {
	case msgView:
		// The partial view merges onto the current one under the session lock.
		var decodeErr error
		err := sess.Update(func(v preview.ViewState) preview.ViewState {
			if len(msg.View) == 0 {
				return v
			}
			merged := v
			if decodeErr = json.Unmarshal(msg.View, &merged); decodeErr != nil {
				return v
			}
			return merged
		})
		if decodeErr != nil {
			return fmt.Errorf("invalid view: %w", decodeErr)
		}
		return err
	case msgReset:
		return sess.Reset()
	case msgCapture:
		_, err := sess.Capture()
		return err
	case msgCancel:
		return sess.Close()
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (c *client) writeFrames(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.dirty:
			if err := c.sendFrame(); err != nil {
				_ = c.conn.Close()
				return err
			}
		}
	}
}

// sendFrame writes the current frame as PNG when the session rendered a
// new one since the last write
func (c *client) sendFrame() error {
	c.mu.Lock()
	sess, sent := c.session, c.sent
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	version := sess.Version()
	if version == sent {
		return nil
	}
	frame := sess.Frame()
	if frame == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := (thumbnail.PNG{}).Encode(&buf, frame); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.mu.Lock()
	if c.session == sess {
		c.sent = version
	}
	c.mu.Unlock()
	return c.write(websocket.BinaryMessage, buf.Bytes())
}

func (c *client) onReady(info preview.AssetInfo) {
	msg := outbound{Type: msgReady, Session: c.id, Asset: newAssetMessage(info)}
	if sess := c.current(); sess != nil {
		view := sess.View()
		msg.View = &view
	}
	c.send(msg)
}

func (c *client) onFrame(*image.NRGBA) {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *client) onThumbnail(t *thumbnail.Thumbnail) {
	c.send(outbound{Type: msgThumbnail, Session: c.id, Thumbnail: newThumbnailMessage(t)})
}

func (c *client) onError(err error) {
	c.mu.Lock()
	c.failed = true
	c.mu.Unlock()
	c.sendError(err, true)
}

// onClose reports the end of the preview and closes the connection
func (c *client) onClose() {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing {
		return
	}

	c.send(outbound{Type: msgClosed, Session: c.id})
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "preview closed"),
		time.Now().Add(writeTimeout))
	_ = c.conn.Close()
}

func (c *client) sendError(err error, fatal bool) {
	msg := outbound{Type: msgError, Session: c.id, Error: err.Error(), Fatal: fatal}
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		msg.Reason = loadErr.Reason.String()
	}
	c.send(msg)
}

func (c *client) send(msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}
	if err := c.write(websocket.TextMessage, data); err != nil {
		c.logger.Debug("Write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// shutdown closes the session silently and drops the connection
func (c *client) shutdown() {
	c.mu.Lock()
	c.closing = true
	sess := c.session
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	_ = c.conn.Close()
}
