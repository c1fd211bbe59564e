package client

import (
	"context"
	"time"

	"hudcast/internal/realtime"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Listen connects to the realtime websocket endpoint and feeds every
// decodable message to handler, reconnecting with a fixed delay until ctx
// is cancelled. The channel is best-effort; dropping it entirely only
// costs latency because the poll loop stays authoritative.
func Listen(ctx context.Context, wsURL, token string, handler func(realtime.Message), logger *zap.SugaredLogger) {
	for {
		if err := listenOnce(ctx, wsURL, token, handler); err != nil && ctx.Err() == nil {
			logger.Warnw("realtime connection lost, reconnecting", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func listenOnce(ctx context.Context, wsURL, token string, handler func(realtime.Message)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL+"?token="+token, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := realtime.Decode(data)
		if err != nil {
			// A malformed message from one peer must not kill the stream.
			continue
		}
		handler(msg)
	}
}
