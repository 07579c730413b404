package server

import (
	"encoding/json"

	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/thumbnail"
)

// Client to server message types
const (
	msgView    = "view"
	msgReset   = "reset"
	msgCapture = "capture"
	msgCancel  = "cancel"
)

// Server to client message types
const (
	msgReady     = "ready"
	msgError     = "error"
	msgThumbnail = "thumbnail"
	msgClosed    = "closed"
)

type inbound struct {
	Type string `json:"type"`
	// View may hold a subset of the view fields; missing ones keep their
	// current value.
	View json.RawMessage `json:"view,omitempty"`
}

type outbound struct {
	Type      string             `json:"type"`
	Session   string             `json:"session,omitempty"`
	Asset     *assetMessage      `json:"asset,omitempty"`
	View      *preview.ViewState `json:"view,omitempty"`
	Error     string             `json:"error,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Fatal     bool               `json:"fatal,omitempty"`
	Thumbnail *thumbnailMessage  `json:"thumbnail,omitempty"`
}

type assetMessage struct {
	Name      string     `json:"name"`
	Size      [3]float64 `json:"size"`
	Scale     float64    `json:"scale"`
	Meshes    int        `json:"meshes"`
	Triangles int        `json:"triangles"`
}

type thumbnailMessage struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// Data is base64 encoded by encoding/json.
	Data []byte `json:"data"`
}

func newAssetMessage(info preview.AssetInfo) *assetMessage {
	return &assetMessage{
		Name:      info.Name,
		Size:      [3]float64{info.Size.X, info.Size.Y, info.Size.Z},
		Scale:     info.Scale,
		Meshes:    info.Meshes,
		Triangles: info.Triangles,
	}
}

func newThumbnailMessage(t *thumbnail.Thumbnail) *thumbnailMessage {
	return &thumbnailMessage{
		Format: t.Format,
		Width:  t.Width,
		Height: t.Height,
		Data:   t.Data,
	}
}
