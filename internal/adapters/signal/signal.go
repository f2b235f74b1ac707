package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/dkeye/Lounge/internal/hub"
)

type WSController struct {
	Hub *hub.Hub
}

func NewWSController(h *hub.Hub) *WSController {
	return &WSController{Hub: h}
}

// WsSignalConn adapts a gorilla websocket to core.SignalConnection:
// non-blocking sends into a buffered channel, drained by the write pump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the connection and registers it with the hub. The
// handshake must carry an already-authenticated user identity; the hub
// trusts it as issued by the out-of-band auth layer.
func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	userID := c.Query("userId")
	username := c.Query("username")
	if username == "" {
		username = "guest"
	}
	user, err := domain.NewUser(domain.UserID(userID), username)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejecting unidentified handshake")
		c.String(http.StatusBadRequest, "missing or invalid identity")
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 64),
	}
	rec := &core.ConnectionRecord{
		ID:     core.ConnID(uuid.NewString()),
		User:   user,
		Signal: conn,
	}
	log.Info().Str("module", "signal").Str("conn", string(rec.ID)).Str("user", string(user.ID)).Msg("new WS connection")

	ctl.Hub.Connect(rec)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
	}()
	go ctl.readPump(ctx, rec.ID, conn)
}
