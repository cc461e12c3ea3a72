package gateway

import (
	"encoding/json"
	"strings"
)

// Envelope is the JSON text frame exchanged with clients.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	// EventPresenterAuth carries a secret client→server and a bool server→client.
	EventPresenterAuth = "presenter-auth"
	// EventPresenter broadcasts whether any session holds authority.
	EventPresenter = "presenter"

	getSuffix = "-get"
	setSuffix = "-set"
)

// RequestKind classifies an inbound event name.
type RequestKind int

const (
	RequestIgnored RequestKind = iota
	RequestGet
	RequestSet
	RequestAuth
)

func (k RequestKind) String() string {
	switch k {
	case RequestGet:
		return "get"
	case RequestSet:
		return "set"
	case RequestAuth:
		return "auth"
	default:
		return "ignored"
	}
}

// ParseRequest splits an inbound event name into its kind and value name.
// The auth channel is matched before the suffix rules so it never reaches
// generic get/set handling.
func ParseRequest(event string) (RequestKind, string) {
	if event == EventPresenterAuth {
		return RequestAuth, ""
	}
	if name, ok := strings.CutSuffix(event, getSuffix); ok && name != "" {
		return RequestGet, name
	}
	if name, ok := strings.CutSuffix(event, setSuffix); ok && name != "" {
		return RequestSet, name
	}
	return RequestIgnored, ""
}

// EncodeEvent builds an outbound frame.
func EncodeEvent(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}

func boolData(v bool) json.RawMessage {
	if v {
		return json.RawMessage("true")
	}
	return json.RawMessage("false")
}
