package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/proto"
	"github.com/avolkov/directline/internal/store"
)

// MessageHandlers provides HTTP handlers for message history.
type MessageHandlers struct {
	store store.Store
	limit int
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, historyLimit int, logger *zerolog.Logger) *MessageHandlers {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &MessageHandlers{
		store: st,
		limit: historyLimit,
		log:   logger,
	}
}

// History returns the recent conversation with a peer, chronological, capped
// at the configured window. The payload matches what live delivery emits so a
// message fetched later is identical to the one delivered at send time.
// GET /api/messages/:userID
func (h *MessageHandlers) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	peerID := c.Param("userID")

	ctx := c.Request.Context()

	peer, err := h.store.GetUserByID(ctx, peerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("peer_id", peerID).Msg("failed to resolve peer")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	self, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to resolve caller")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	messages, err := h.store.ListConversation(ctx, userID, peerID, h.limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	selfRef := proto.UserRef{ID: self.ID, Name: self.Name, Username: self.Username}
	peerRef := proto.UserRef{ID: peer.ID, Name: peer.Name, Username: peer.Username}

	response := make([]proto.MessagePayload, 0, len(messages))
	for _, msg := range messages {
		from, to := selfRef, peerRef
		if msg.FromID == peer.ID {
			from, to = peerRef, selfRef
		}
		response = append(response, proto.MessagePayload{
			ID:        msg.ID,
			From:      from,
			To:        to,
			Content:   msg.Content,
			Read:      msg.Read,
			CreatedAt: msg.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": response})
}
