package domain

import (
	"encoding/json"
	"time"
)

// Session is the last delivery address a user submitted from the Mini App.
type Session struct {
	UserID        string          `json:"user_id"`
	Address       string          `json:"address"`
	Comment       string          `json:"comment"`
	GeocodeResult json.RawMessage `json:"geocode_result"`
	CapturedAt    time.Time       `json:"captured_at"`
}
