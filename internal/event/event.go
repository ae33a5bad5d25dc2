// Package event defines the shapes of inbound transport events and the
// lenient decoding the push channel and backfill endpoint require.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luftradio/station-timeline/internal/profile"
)

// ErrUnknownType marks a frame whose type this client does not handle.
// Unknown frames are counted and ignored, never fatal.
var ErrUnknownType = errors.New("event: unknown frame type")

// Millis is an epoch-millisecond timestamp that unmarshals from either
// a JSON number (epoch ms) or an ISO-8601 string. Zero means absent.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*m = Millis(int64(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("event: timestamp is neither number nor string: %s", data)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("event: parse timestamp %q: %w", s, err)
	}
	*m = Millis(t.UnixMilli())
	return nil
}

// Or returns the timestamp, or fallback when absent.
func (m Millis) Or(fallback int64) int64 {
	if m == 0 {
		return fallback
	}
	return int64(m)
}

// ConnStatus reports push-channel availability. It travels the same
// delivery path as wire events so consumers see it in order, and it
// only affects the availability flag on published views, never the
// segment store.
type ConnStatus struct {
	Connected bool
}

// Envelope is the framing used on the push channel: a type tag plus the
// type-specific payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Speaker is one roster entry in a full state snapshot.
type Speaker struct {
	ID          string `json:"id"`
	IsSpeaking  bool   `json:"isSpeaking"`
	StartedAt   Millis `json:"startedAt,omitempty"`
	VoiceState  string `json:"voiceState,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Profile extracts the identity fields carried by the roster entry.
func (s Speaker) Profile() profile.Profile {
	return profile.Profile{DisplayName: s.DisplayName, Username: s.Username, Avatar: s.Avatar}
}

// Sample is one listener-count observation.
type Sample struct {
	Timestamp Millis  `json:"timestamp"`
	Count     float64 `json:"count"`
}

// ListenerState is the listener block optionally embedded in a state
// snapshot.
type ListenerState struct {
	Count   float64  `json:"count"`
	History []Sample `json:"history,omitempty"`
}

// State is an authoritative full snapshot of the currently-speaking
// roster, used to reconcile drift after a reconnect. AnonymousSlot only
// affects directory rendering upstream; it is decoded and ignored here.
type State struct {
	Speakers      []Speaker       `json:"speakers"`
	Listeners     *ListenerState  `json:"listeners,omitempty"`
	AnonymousSlot json.RawMessage `json:"anonymousSlot,omitempty"`
}

// SpeakingUser identifies the participant a speaking event refers to.
type SpeakingUser struct {
	ID          string `json:"id"`
	StartedAt   Millis `json:"startedAt,omitempty"`
	LastSpokeAt Millis `json:"lastSpokeAt,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// Profile extracts the identity fields carried by the event.
func (u SpeakingUser) Profile() profile.Profile {
	return profile.Profile{DisplayName: u.DisplayName, Username: u.Username, Avatar: u.Avatar}
}

// Speaking is an incremental start/end notification for one participant.
// End events may carry only a bare userId.
type Speaking struct {
	Type   string        `json:"type"`
	User   *SpeakingUser `json:"user,omitempty"`
	UserID string        `json:"userId,omitempty"`
}

// Listeners is an incremental listener-count update. When Inserted is
// false the entry amends the most recently appended sample instead of
// appending a new one (the transport correcting a just-sent value).
type Listeners struct {
	Count    float64 `json:"count"`
	Entry    *Sample `json:"entry,omitempty"`
	Inserted *bool   `json:"inserted,omitempty"`
}

// Decode parses one push-channel frame into its typed event. The
// concrete type is *State, *Speaking, or *Listeners.
func Decode(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("event: decode envelope: %w", err)
	}
	payload := env.Data
	if len(payload) == 0 {
		payload = data
	}
	switch env.Type {
	case "state":
		var ev State
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("event: decode state: %w", err)
		}
		return &ev, nil
	case "speaking":
		var ev Speaking
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("event: decode speaking: %w", err)
		}
		return &ev, nil
	case "listeners":
		var ev Listeners
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("event: decode listeners: %w", err)
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
