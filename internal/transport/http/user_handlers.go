package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/store"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UserListEntry is one entry of the user directory response.
type UserListEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// List returns every user except the caller, online first, then by name.
// GET /api/users
func (h *UserHandlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.store.ListUsers(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserListEntry, 0, len(users))
	for _, u := range users {
		response = append(response, UserListEntry{
			ID:       u.ID,
			Name:     u.Name,
			Username: u.Username,
			Online:   u.Online,
			LastSeen: u.LastSeen,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": response})
}

// Logout clears the caller's persisted online flag.
// POST /api/users/logout
func (h *UserHandlers) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.store.SetOnline(c.Request.Context(), userID, false); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to mark user offline")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
