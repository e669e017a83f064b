package stream

import (
	"github.com/samtoma/Headhunter-sub000/internal/roster"
	"github.com/samtoma/Headhunter-sub000/internal/upload"
)

// Message types.
const (
	TypeRoster = "roster"
	TypeUpload = "upload"
)

// OnRosterEvent is a roster.Store subscriber.
func (h *Hub) OnRosterEvent(ev roster.Event) { h.Publish(TypeRoster, ev) }

// OnUploadChange is an upload.Session subscriber.
func (h *Hub) OnUploadChange(s upload.Snapshot) { h.Publish(TypeUpload, s) }
