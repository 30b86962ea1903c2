package handlers

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aaronzipp/battleship/internal/config"
	"github.com/aaronzipp/battleship/internal/events"
	"github.com/aaronzipp/battleship/internal/protocol"
	"github.com/aaronzipp/battleship/internal/store"
)

// Context holds shared application dependencies
type Context struct {
	Registry *store.Registry
	Hub      *events.Hub
	Server   *protocol.Server
	Config   config.Config
	Started  time.Time

	upgrader websocket.Upgrader
}

// New creates the handler context. The dispatcher must be running before
// the routes are served.
func New(cfg config.Config, registry *store.Registry, hub *events.Hub, server *protocol.Server) *Context {
	debug = cfg.Debug
	ctx := &Context{
		Registry: registry,
		Hub:      hub,
		Server:   server,
		Config:   cfg,
		Started:  time.Now(),
	}
	origins := cfg.Origins()
	ctx.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimRight(r.Header.Get("Origin"), "/")
			return origin == "" || slices.Contains(origins, origin)
		},
	}
	return ctx
}

// Routes registers every endpoint on a new mux
func (ctx *Context) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", ctx.HandleIndex)
	mux.HandleFunc("GET /health", ctx.HandleHealth)
	mux.HandleFunc("GET /ws", ctx.HandleSocket)
	mux.HandleFunc("GET /sessions/{code}/qr.png", ctx.HandleQR)
	return mux
}

type statusResponse struct {
	Status             string `json:"status"`
	Message            string `json:"message"`
	Environment        string `json:"environment"`
	ActiveSessions     int    `json:"activeSessions"`
	ActiveParticipants int    `json:"activeParticipants"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

// HandleIndex reports server status and session counts
func (ctx *Context) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	stats := ctx.Registry.Stats()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:             "ok",
		Message:            "Battleship server is running",
		Environment:        ctx.Config.Environment,
		ActiveSessions:     stats.ActiveSessions,
		ActiveParticipants: stats.ActiveParticipants,
	})
}

// HandleHealth is the liveness probe
func (ctx *Context) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Uptime:    time.Since(ctx.Started).Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
