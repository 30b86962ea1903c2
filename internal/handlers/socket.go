package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aaronzipp/battleship/internal/events"
	"github.com/aaronzipp/battleship/internal/game"
	"github.com/aaronzipp/battleship/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8 * 1024
)

// participantID reuses a well formed id from the query so a returning
// client keeps its seat, and mints a fresh one otherwise.
func participantID(r *http.Request) string {
	if id, err := uuid.Parse(r.URL.Query().Get("participantId")); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// HandleSocket upgrades to a websocket and bridges it to the dispatcher
func (ctx *Context) HandleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ctx.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("HandleSocket: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id := participantID(r)
	code := r.URL.Query().Get("sessionId")
	client := events.NewClient(id)
	ctx.Hub.AddClient(client)
	if debug {
		log.Printf("HandleSocket: participant %s connected, %d clients", id, ctx.Hub.ClientCount())
	}

	go ctx.writeLoop(conn, client)

	if err := ctx.Server.Connect(r.Context(), id, code); err != nil {
		log.Printf("HandleSocket: connect %s: %v", id, err)
		client.Close()
		ctx.Hub.RemoveClient(client)
		return
	}

	ctx.readLoop(r.Context(), conn, client)

	client.Close()
	if ctx.Hub.RemoveClient(client) {
		if err := ctx.Server.Disconnect(context.Background(), id); err != nil {
			log.Printf("HandleSocket: disconnect %s: %v", id, err)
		}
	}
	if debug {
		log.Printf("HandleSocket: participant %s closed", id)
	}
}

func (ctx *Context) readLoop(reqCtx context.Context, conn *websocket.Conn, client *events.Client) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("readLoop: participant %s: %v", client.ParticipantID, err)
			}
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil || req.Type == "" {
			ctx.Hub.Send(client.ParticipantID, events.Message{
				Type: events.EventError,
				Data: protocol.ErrorPayload{Message: game.ErrMalformedRequest.Message, Code: string(game.CodeValidation)},
			})
			continue
		}
		if err := ctx.Server.Submit(reqCtx, client.ParticipantID, req); err != nil {
			log.Printf("readLoop: submit from %s: %v", client.ParticipantID, err)
			return
		}
	}
}

// writeLoop owns every write to conn. It exits when the client is closed,
// which is also how a superseded connection gets shut down.
func (ctx *Context) writeLoop(conn *websocket.Conn, client *events.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-client.Outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("writeLoop: participant %s: %v", client.ParticipantID, err)
				client.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
