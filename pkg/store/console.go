package store

import (
	"time"

	"kb-console/pkg/chat"
	"kb-console/pkg/registry"
)

// Console is the in-memory state behind one browser: its file registry view
// and its chat controller. The two share nothing.
type Console struct {
	ID        string             `json:"id"`
	Files     *registry.Registry `json:"-"`
	Chat      *chat.Controller   `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
}
