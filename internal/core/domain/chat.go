package domain

import "time"

// ChatMessage is one persisted chat line. The realtime channel delivers
// chat live; the stored log backfills history for clients that connect
// late.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    UserID    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
