package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried on the realtime channel. The channel is a
// best-effort latency optimization: delivery is at-most-once, unordered,
// and never authoritative. Clients reconcile against the HTTP state
// endpoint.
const (
	TypeChat                  = "chat"
	TypeStreamStatus          = "stream:status"
	TypeStreamRequest         = "stream:request"
	TypeStreamRequestResponse = "stream:request:response"
	TypeStreamHandoff         = "stream:handoff"
)

// Message is one variant of the tagged union. TS is for display ordering
// only, never for correctness.
type Message interface {
	MessageType() string
}

type Chat struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	TS        int64  `json:"ts"`
}

func (Chat) MessageType() string { return TypeChat }

type StreamStatus struct {
	Type             string  `json:"type"`
	ActiveStreamerID *string `json:"activeStreamerId"`
	IsLive           bool    `json:"isLive"`
	LiveStartedAt    *string `json:"liveStartedAt"`
	TS               int64   `json:"ts"`
}

func (StreamStatus) MessageType() string { return TypeStreamStatus }

type StreamRequest struct {
	Type         string `json:"type"`
	FromUserID   string `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
	TS           int64  `json:"ts"`
}

func (StreamRequest) MessageType() string { return TypeStreamRequest }

type StreamRequestResponse struct {
	Type     string `json:"type"`
	Accepted bool   `json:"accepted"`
	ToUserID string `json:"toUserId"`
	TS       int64  `json:"ts"`
}

func (StreamRequestResponse) MessageType() string { return TypeStreamRequestResponse }

type StreamHandoff struct {
	Type              string `json:"type"`
	NewStreamerUserID string `json:"newStreamerUserId"`
	TS                int64  `json:"ts"`
}

func (StreamHandoff) MessageType() string { return TypeStreamHandoff }

// NowTS returns the display timestamp in unix milliseconds.
func NowTS() int64 {
	return time.Now().UnixMilli()
}

func NewChat(messageID, userID, username, text string) Chat {
	return Chat{Type: TypeChat, MessageID: messageID, UserID: userID, Username: username, Text: text, TS: NowTS()}
}

func NewStreamStatus(activeStreamerID *string, isLive bool, liveStartedAt *time.Time) StreamStatus {
	var started *string
	if liveStartedAt != nil {
		s := liveStartedAt.UTC().Format(time.RFC3339Nano)
		started = &s
	}
	return StreamStatus{Type: TypeStreamStatus, ActiveStreamerID: activeStreamerID, IsLive: isLive, LiveStartedAt: started, TS: NowTS()}
}

func NewStreamRequest(fromUserID, fromUsername string) StreamRequest {
	return StreamRequest{Type: TypeStreamRequest, FromUserID: fromUserID, FromUsername: fromUsername, TS: NowTS()}
}

func NewStreamRequestResponse(accepted bool, toUserID string) StreamRequestResponse {
	return StreamRequestResponse{Type: TypeStreamRequestResponse, Accepted: accepted, ToUserID: toUserID, TS: NowTS()}
}

func NewStreamHandoff(newStreamerUserID string) StreamHandoff {
	return StreamHandoff{Type: TypeStreamHandoff, NewStreamerUserID: newStreamerUserID, TS: NowTS()}
}

// Encode serializes a message for the wire.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses and validates one message. Unknown or structurally
// invalid messages are rejected; a client bug on one peer must not
// poison the others' reducers.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("malformed realtime message: %w", err)
	}

	switch head.Type {
	case TypeChat:
		var m Chat
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.MessageID == "" || m.UserID == "" || m.Text == "" {
			return nil, fmt.Errorf("chat message missing required fields")
		}
		return m, nil
	case TypeStreamStatus:
		var m StreamStatus
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeStreamRequest:
		var m StreamRequest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.FromUserID == "" {
			return nil, fmt.Errorf("stream request missing fromUserId")
		}
		return m, nil
	case TypeStreamRequestResponse:
		var m StreamRequestResponse
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.ToUserID == "" {
			return nil, fmt.Errorf("request response missing toUserId")
		}
		return m, nil
	case TypeStreamHandoff:
		var m StreamHandoff
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.NewStreamerUserID == "" {
			return nil, fmt.Errorf("handoff missing newStreamerUserId")
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown realtime message type %q", head.Type)
	}
}
