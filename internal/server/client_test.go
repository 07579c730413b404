package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/loader"
)

func readyClient(t *testing.T) (*client, *preview.Session) {
	t.Helper()
	ready := make(chan preview.AssetInfo, 1)
	sess, err := preview.NewSession(preview.Options{
		Width:  32,
		Height: 24,
		Callbacks: preview.Callbacks{
			OnReady: func(info preview.AssetInfo) { ready <- info },
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	require.NoError(t, sess.Load(loader.NewBytesSource("tri.stl", []byte(asciiTriangle))))
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("asset never became ready")
	}
	return &client{session: sess}, sess
}

func viewMsg(t *testing.T, fields map[string]any) inbound {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return inbound{Type: msgView, View: raw}
}

func TestPartialViewMerges(t *testing.T) {
	c, sess := readyClient(t)

	require.NoError(t, c.handle(viewMsg(t, map[string]any{"yaw": 30})))
	require.NoError(t, c.handle(viewMsg(t, map[string]any{"zoom": 2})))

	want := preview.DefaultViewState()
	want.Yaw = 30
	want.Zoom = 2
	assert.Equal(t, want, sess.View())
}

func TestConcurrentPartialViewsKeepEveryField(t *testing.T) {
	c, sess := readyClient(t)

	fields := []map[string]any{
		{"yaw": 10}, {"pitch": 20}, {"roll": 30}, {"zoom": 1.5}, {"focalLength": 80},
	}
	var wg sync.WaitGroup
	for _, f := range fields {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.handle(viewMsg(t, f)))
		}()
	}
	wg.Wait()

	assert.Equal(t, preview.ViewState{Yaw: 10, Pitch: 20, Roll: 30, Zoom: 1.5, FocalLength: 80}, sess.View())
}

func TestMalformedViewLeavesViewUnchanged(t *testing.T) {
	c, sess := readyClient(t)
	require.NoError(t, c.handle(viewMsg(t, map[string]any{"yaw": 15})))
	before := sess.View()

	err := c.handle(inbound{Type: msgView, View: json.RawMessage(`{"pitch": 40, "zoom": "far"}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid view")
	assert.Equal(t, before, sess.View())
}
