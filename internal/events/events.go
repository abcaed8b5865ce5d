package events

import (
	"encoding/json"
	"time"
)

const (
	TypeRefreshStarted  = "refresh_started"
	TypeCategoryDone    = "category_done"
	TypeRefreshFinished = "refresh_finished"
	TypeConfigUpdated   = "config_updated"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes one event as the JSON line sent to subscribers.
func MakeEvent(runID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: 1,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
