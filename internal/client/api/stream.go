package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dmitrijs2005/healthsync/internal/client/status"
)

const (
	streamBuffer       = 16
	streamWriteTimeout = 5 * time.Second
)

// streamStatus pushes every status snapshot to a websocket client, starting
// with the current one. Slow clients miss intermediate snapshots but always
// receive the latest.
func (s *Server) streamStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	updates := make(chan status.Snapshot, streamBuffer)
	unsubscribe := s.svc.SubscribeStatus(func(snap status.Snapshot) {
		select {
		case updates <- snap:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	// the client never sends; CloseRead notices when it goes away
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := wsjson.Write(wctx, conn, snap)
			cancel()
			if err != nil {
				s.logger.Debug(ctx, "status stream closed", "error", err)
				return
			}
		}
	}
}
