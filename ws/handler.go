package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

// TokenValidator is the part of the auth service the handler needs. Declared
// here so ws does not import services (services import ws).
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// UserLoader looks up the stored account behind a token.
// repository.UserRepository satisfies it.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Handler upgrades admin requests to feed connections.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	users          UserLoader
	upgrader       websocket.Upgrader
}

// NewHandler creates the handler. allowedOrigins are accepted in addition to
// same-host requests.
func NewHandler(hub *Hub, tokenValidator TokenValidator, users UserLoader, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		users:          users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// HandleConnection serves GET /api/admin/ws.
//
// Browsers cannot set headers on a WebSocket handshake, so the token comes
// from ?token= or the access cookie. The role in the token is not enough:
// the account is loaded again so a demoted or deleted admin is refused
// before the token expires. The feed carries buyer addresses.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = pkg.AccessToken(r)
	}
	if token == "" {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "missing token")
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if claims.Role != models.RoleAdmin {
		pkg.ErrorWithMessage(w, http.StatusForbidden, "admin access required")
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user no longer exists")
			return
		}
		pkg.Error(w, err)
		return
	}
	if !user.IsAdmin() {
		pkg.ErrorWithMessage(w, http.StatusForbidden, "admin access required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.hub.log.Debug("upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, claims.UserID)
	client.writeEvent(Event{Op: OpReady, Data: ReadyData{
		UserID:        claims.UserID,
		OnlineUserIDs: appendUnique(h.hub.OnlineUserIDs(), claims.UserID),
	}})

	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
