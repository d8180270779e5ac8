package live

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"claims-service/internal/auth"
	"claims-service/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsCommand struct {
	Action  string      `json:"action"`
	View    string      `json:"view"`
	ClaimID string      `json:"claim_id"`
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
}

// pendingOpBuffer holds one connection's optimistic local mutations until
// the store echoes them back or the window expires.
type pendingOpBuffer struct {
	mu     sync.Mutex
	window time.Duration
	ops    []PendingOp
}

func (b *pendingOpBuffer) add(op PendingOp) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
}

// overlay applies the still-fresh ops onto a snapshot and drops the expired
// ones on the way.
func (b *pendingOpBuffer) overlay(claims []model.ClaimView, now time.Time) []model.ClaimView {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.ops[:0]
	for _, op := range b.ops {
		if now.Sub(op.AppliedAt) < b.window {
			kept = append(kept, op)
		}
	}
	b.ops = kept

	if len(b.ops) == 0 {
		return claims
	}
	return Reconcile(claims, b.ops, b.window, now)
}

// Hub serves the live claim list over WebSocket. Every connection gets its
// own Synchronizer; multiple views never share mutable state and only agree
// through the store.
type Hub struct {
	store           Store
	feed            Feed
	parser          *auth.Parser
	baseDelay       time.Duration
	reconcileWindow time.Duration
	log             zerolog.Logger
}

func NewHub(store Store, feed Feed, parser *auth.Parser, baseDelay, reconcileWindow time.Duration, log zerolog.Logger) *Hub {
	if reconcileWindow <= 0 {
		reconcileWindow = 10 * time.Second
	}
	return &Hub{
		store:           store,
		feed:            feed,
		parser:          parser,
		baseDelay:       baseDelay,
		reconcileWindow: reconcileWindow,
		log:             log,
	}
}

// Handle upgrades GET /ws/claims. Browsers cannot set headers on a
// WebSocket, so the token also travels as a query parameter.
func (h *Hub) Handle(c *gin.Context) {
	principal, ok := h.authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	mode, ok := ParseFilterMode(c.Query("view"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid view"})
		return
	}
	if !principal.IsStaff() && mode == FilterArchived {
		c.JSON(http.StatusForbidden, gin.H{"error": "archived view is staff only"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	syncer := NewSynchronizer(h.store, h.feed, mode, h.baseDelay, h.log)
	ops := &pendingOpBuffer{window: h.reconcileWindow}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := syncer.Run(ctx); err != nil && ctx.Err() == nil {
			h.log.Error().Err(err).Msg("live subscription ended")
		}
	}()

	// lector: detecta desconexión, cambios de vista y mutaciones optimistas
	go func() {
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				cancel()
				return
			}
			switch cmd.Action {
			case "set_view":
				if next, ok := ParseFilterMode(cmd.View); ok {
					if next == FilterArchived && !principal.IsStaff() {
						continue
					}
					syncer.SetFilterMode(next)
				}
			case "local_op":
				claimID, err := uuid.Parse(cmd.ClaimID)
				if err != nil {
					continue
				}
				value, ok := CoerceOpValue(cmd.Field, cmd.Value)
				if !ok {
					continue
				}
				ops.add(PendingOp{ClaimID: claimID, Field: cmd.Field, Value: value, AppliedAt: time.Now()})
			}
		}
	}()

	write := func(update Update) bool {
		if update.Error == "" {
			update.Claims = ops.overlay(update.Claims, time.Now())
		}
		return conn.WriteJSON(update) == nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			// el Run terminó; antes de cerrar se entregan los frames que
			// quedaron en cola, el último explica el motivo
			for {
				select {
				case update := <-syncer.Updates():
					if !write(update) {
						return
					}
				default:
					return
				}
			}
		case update := <-syncer.Updates():
			if !write(update) {
				return
			}
		}
	}
}

func (h *Hub) authenticate(c *gin.Context) (model.Principal, bool) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return model.Principal{}, false
	}

	claims, err := h.parser.Parse(token)
	if err != nil {
		return model.Principal{}, false
	}

	return model.Principal{
		UserID:       claims.UserID,
		Role:         claims.Role,
		Name:         claims.Name,
		Approved:     claims.Approved,
		TechnicianID: claims.TechnicianID,
	}, true
}
