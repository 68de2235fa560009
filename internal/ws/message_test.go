package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	req := require.New(t)

	data := []byte(`{"event":"offer","payload":{"target_id":"bob","sdp":"x"},"from":"spoofed"}`)
	env, err := ParseEnvelope(data)
	req.NoError(err)
	req.Equal(EventOffer, env.Event)

	var payload map[string]string
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.Equal("bob", payload["target_id"])
}

func TestParseEnvelope_Invalid(t *testing.T) {
	req := require.New(t)

	_, err := ParseEnvelope([]byte(`{not json`))
	req.Error(err)

	_, err = ParseEnvelope([]byte(`{"payload":{}}`))
	req.Error(err)
}

func TestNewEnvelope_RoundTrip(t *testing.T) {
	req := require.New(t)

	env, err := NewEnvelope(EventCallEnded, map[string]string{"call_id": "c1"})
	req.NoError(err)
	req.NotEmpty(env.ID)
	req.False(env.Timestamp.IsZero())

	data, err := env.ToJSON()
	req.NoError(err)

	parsed, err := ParseEnvelope(data)
	req.NoError(err)
	req.Equal(EventCallEnded, parsed.Event)
}
