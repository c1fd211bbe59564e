package services

import (
	"context"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/realtime"

	"go.uber.org/zap"
)

const (
	chatHistoryDefault = 50
	chatHistoryMax     = 100
)

// ChatService persists chat lines accepted by the realtime hub and serves
// history to late joiners. It implements realtime.ChatStore on the write
// side and ports.ChatService on the read side.
type ChatService struct {
	store  ports.ChatRepository
	logger *zap.SugaredLogger
}

func NewChatService(store ports.ChatRepository, logger *zap.SugaredLogger) *ChatService {
	return &ChatService{store: store, logger: logger}
}

var (
	_ ports.ChatService  = (*ChatService)(nil)
	_ realtime.ChatStore = (*ChatService)(nil)
)

// Append stores a chat line the hub has already re-stamped with the
// authenticated identity.
func (s *ChatService) Append(ctx context.Context, msg realtime.Chat) error {
	return s.store.Append(ctx, &domain.ChatMessage{
		ID:        msg.MessageID,
		UserID:    domain.UserID(msg.UserID),
		Username:  msg.Username,
		Text:      msg.Text,
		CreatedAt: time.UnixMilli(msg.TS),
	})
}

// History returns the latest messages in ascending order for display.
// Limit defaults to 50 and is capped at 100.
func (s *ChatService) History(ctx context.Context, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = chatHistoryDefault
	}
	if limit > chatHistoryMax {
		limit = chatHistoryMax
	}

	msgs, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	// The store is newest-first; history reads oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
