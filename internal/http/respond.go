package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const demoUserID = "demo_user"

// Result is the in-band outcome every mutating endpoint reports with HTTP 200.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// requestLog tags log with the id RequestIDMiddleware put on r.
func requestLog(log logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	return log.WithField("request_id", getRequestID(r.Context()))
}

func respondJSON(log logrus.FieldLogger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondResult(log logrus.FieldLogger, w http.ResponseWriter, success bool, message string) {
	respondJSON(log, w, http.StatusOK, Result{Success: success, Message: message})
}

// respondRaw writes an upstream payload verbatim. A nil payload becomes JSON null.
func respondRaw(log logrus.FieldLogger, w http.ResponseWriter, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if payload == nil {
		payload = json.RawMessage("null")
	}
	if _, err := w.Write(payload); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// flexString accepts either a JSON string or a JSON number. Telegram user ids
// arrive as numbers from the WebApp bridge and as strings elsewhere.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected string or number")
	}
	*f = flexString(n.String())
	return nil
}

func userIDOrDemo(id flexString) string {
	if s := strings.TrimSpace(string(id)); s != "" {
		return s
	}
	return demoUserID
}
