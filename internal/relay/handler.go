package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/validate"
)

// TransportOptions tunes the websocket transport.
type TransportOptions struct {
	SendQueueSize  int
	MaxFrameBytes  int64
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	AllowedOrigins []string
}

// DefaultTransportOptions returns the transport settings used when none are
// configured.
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		SendQueueSize: 64,
		MaxFrameBytes: 16 << 10,
		PingInterval:  50 * time.Second,
		PongWait:      60 * time.Second,
		WriteWait:     10 * time.Second,
	}
}

// Handler upgrades HTTP requests to websocket connections and runs them
// through a Router.
type Handler struct {
	router   *Router
	opts     TransportOptions
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler creates the websocket endpoint. Zero-valued options fall back to
// DefaultTransportOptions.
func NewHandler(router *Router, opts TransportOptions, log zerolog.Logger) *Handler {
	opts = withTransportDefaults(opts)
	return &Handler{
		router:   router,
		opts:     opts,
		upgrader: makeUpgrader(opts.AllowedOrigins),
		log:      log.With().Str("component", "transport").Logger(),
	}
}

func withTransportDefaults(opts TransportOptions) TransportOptions {
	def := DefaultTransportOptions()
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = def.SendQueueSize
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = def.MaxFrameBytes
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.PongWait {
		opts.PingInterval = opts.PongWait * 9 / 10
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	return opts
}

// makeUpgrader creates a websocket upgrader with origin checking. An empty
// list or a lone "*" allows every origin.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

// ServeHTTP handles GET /ws?userId=<id>&isAdmin=<bool>. The identity is
// trusted as given; rejecting it happens before the upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("userId")
	if err := validate.Identity(identity); err != nil {
		http.Error(w, "userId: "+err.Error(), http.StatusBadRequest)
		return
	}

	role, err := chat.ParseAdminFlag(r.URL.Query().Get("isAdmin"))
	if err != nil {
		http.Error(w, "isAdmin: "+err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	log := h.log.With().Str("identity", identity).Str("role", string(role)).Logger()
	socket := newWSSocket(ws, h.opts, log)
	c := NewConn(identity, role, socket)

	h.router.Connect(c)
	go socket.writePump()

	h.readPump(r.Context(), ws, c, log)
}

// readPump feeds inbound frames to the router until the peer goes away. Frames
// are handled one at a time, so a slow store only stalls this connection.
func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, c *Conn, log zerolog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		h.router.Disconnect(c)
	}()

	ws.SetReadLimit(h.opts.MaxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		// Any frame counts as liveness.
		_ = ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		_ = h.router.HandleFrame(ctx, c, data)
	}
}
