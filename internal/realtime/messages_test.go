package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"chat", NewChat("m1", "u1", "Alice", "hello")},
		{"status idle", NewStreamStatus(nil, false, nil)},
		{"request", NewStreamRequest("u2", "Bob")},
		{"response", NewStreamRequestResponse(true, "u2")},
		{"handoff", NewStreamHandoff("u2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestDecode_RejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"stream:explode","ts":1}`))
	assert.Error(t, err)
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecode_RejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"type":"chat","messageId":"","userId":"u","text":"hi"}`,
		`{"type":"chat","messageId":"m","userId":"u","text":""}`,
		`{"type":"stream:request","fromUserId":""}`,
		`{"type":"stream:request:response","accepted":true,"toUserId":""}`,
		`{"type":"stream:handoff","newStreamerUserId":""}`,
	}
	for _, raw := range cases {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestStreamStatus_NullableOwner(t *testing.T) {
	decoded, err := Decode([]byte(`{"type":"stream:status","activeStreamerId":null,"isLive":false,"liveStartedAt":null,"ts":5}`))
	require.NoError(t, err)

	status, ok := decoded.(StreamStatus)
	require.True(t, ok)
	assert.Nil(t, status.ActiveStreamerID)
	assert.Nil(t, status.LiveStartedAt)
}
