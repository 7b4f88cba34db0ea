// internal/models/models.go
package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// User is an authenticated account.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	// PasswordHash is the bcrypt hash; never serialized.
	PasswordHash string `json:"-"`
}

// Player is one seat in a duel: a user plus their live connection state.
type Player struct {
	ID        uuid.UUID       // Seat identity (equals the user ID).
	User      *User           // Account info for display.
	Conn      *websocket.Conn // Live WebSocket connection, nil when disconnected.
	Connected bool
}

// GameAction is the wire format for an incoming player action.
type GameAction struct {
	ActionType string                 `json:"action"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
