package protocol

import (
	"time"

	json "github.com/goccy/go-json"
)

// Envelope is the superset of both accepted message shapes. The v2.1 dialect
// carries a type discriminator and a data object; the legacy dialect spreads
// its arguments flat across the top level.
type Envelope struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Event   string `json:"event"`

	// Legacy selectors. Config names the setting to change, Action names the
	// operation to run.
	Config string `json:"config"`
	Action string `json:"action"`

	Data json.RawMessage `json:"data"`

	// Legacy flat arguments.
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	SSID         string   `json:"ssid"`
	Password     string   `json:"password"`
	Local        bool     `json:"local"`
	Value        any      `json:"value"`
	Rfids        []any    `json:"rfids"`
	FastCharging bool     `json:"fastCharging"`
	LimitA       int      `json:"limitA"`
	SessionID    string   `json:"sessionId"`
	SessionIDs   []string `json:"sessionIds"`
	Limit        int      `json:"limit"`
}

// V21Response is the structured reply shape of the v2.1 dialect.
type V21Response struct {
	Type      string    `json:"type"`
	Command   string    `json:"command"`
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func v21OK(command string, data any) *V21Response {
	return &V21Response{
		Type:      "response",
		Command:   command,
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func v21Fail(command, errMsg string) *V21Response {
	return &V21Response{
		Type:      "response",
		Command:   command,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
}

// legacyMsg is the flat ack/msg reply of the legacy dialect. Extra fields are
// merged in as-is.
func legacyMsg(ack bool, msg string, extra map[string]any) map[string]any {
	out := map[string]any{"ack": ack, "msg": msg}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func legacyOK() map[string]any {
	return legacyMsg(true, "ok", nil)
}

func legacyErr(detail string) map[string]any {
	return legacyMsg(false, "error", map[string]any{"error": detail})
}

func decodeData(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
