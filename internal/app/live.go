package app

import (
	"context"
	"net/http"
	"time"

	"showcase/api/internal/project"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const liveWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveMessage struct {
	Projects []project.Record `json:"projects"`
	Loaded   bool             `json:"loaded"`
}

// handleLive streams the merged list to one socket. Sockets share the
// catalog's store subscription; each only holds a watch on it, released when
// the client goes away or a write fails.
func (s *HTTPServer) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Holds at most the newest list so a slow socket never stalls the catalog.
	updates := make(chan []project.Record, 1)
	release := s.service.Live(func(projects []project.Record) {
		for {
			select {
			case updates <- projects:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer release()

	send := func(msg liveMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(msg)
	}

	projects, loaded := s.service.Projects()
	if err := send(liveMessage{Projects: nonNilRecords(projects), Loaded: loaded}); err != nil {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case projects := <-updates:
				if err := send(liveMessage{Projects: nonNilRecords(projects), Loaded: true}); err != nil {
					s.logger.Debug("live write failed", zap.Error(err))
					_ = conn.Close()
					return
				}
			}
		}
	}()

	// Clients never send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
