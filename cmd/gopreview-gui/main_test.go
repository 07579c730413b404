package main

import (
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/loader"
)

const asciiTriangle = `solid tri
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 4 0 0
    vertex 0 2 0
  endloop
endfacet
endsolid tri
`

func readyApp(t *testing.T) (*App, *preview.Session) {
	t.Helper()
	test.NewTempApp(t)

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

	return &App{
		logger:  zap.NewNop(),
		sliders: make(map[string]*widget.Slider),
		values:  make(map[string]*widget.Label),
		status:  widget.NewLabel(""),
		session: sess,
	}, sess
}

func TestKeyRResetsView(t *testing.T) {
	a, sess := readyApp(t)

	a.Orbit(30, 15)
	a.ZoomBy(2)
	require.NotEqual(t, preview.DefaultViewState(), sess.View())

	a.typedKey(&fyne.KeyEvent{Name: fyne.KeyR})
	assert.Equal(t, preview.DefaultViewState(), sess.View())
	assert.Equal(t, preview.Ready, sess.State())
}

func TestKeyEscapeCloses(t *testing.T) {
	a, sess := readyApp(t)

	a.typedKey(&fyne.KeyEvent{Name: fyne.KeyEscape})
	assert.Equal(t, preview.Closed, sess.State())
}

func TestWrapDegrees(t *testing.T) {
	assert.Equal(t, -170.0, wrapDegrees(190))
	assert.Equal(t, 170.0, wrapDegrees(-190))
	assert.Equal(t, 180.0, wrapDegrees(180))
}
