package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	cases := []struct {
		event string
		kind  RequestKind
		name  string
	}{
		{"route-get", RequestGet, "route"},
		{"route-set", RequestSet, "route"},
		{"presenter-get", RequestGet, "presenter"},
		{"presenter-auth", RequestAuth, ""},
		{"multi-part-name-set", RequestSet, "multi-part-name"},
		{"route", RequestIgnored, ""},
		{"-get", RequestIgnored, ""},
		{"-set", RequestIgnored, ""},
		{"", RequestIgnored, ""},
		{"pickLight", RequestIgnored, ""},
	}

	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			kind, name := ParseRequest(tc.event)
			assert.Equal(t, tc.kind, kind)
			assert.Equal(t, tc.name, name)
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent("route", json.RawMessage(`"shop"`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"route","data":"shop"}`, string(frame))

	frame, err = EncodeEvent("route-get", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"route-get"}`, string(frame))
}
