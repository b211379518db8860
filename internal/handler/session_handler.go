package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mrecall/internal/model"
	"github.com/xxxsen/mrecall/internal/pkg/errcode"
	"github.com/xxxsen/mrecall/internal/pkg/response"
	"github.com/xxxsen/mrecall/internal/repo"
	"github.com/xxxsen/mrecall/internal/service"
)

type SessionHandler struct {
	sessions *repo.SessionRepo
	memories *service.MemoryService
}

func NewSessionHandler(sessions *repo.SessionRepo, memories *service.MemoryService) *SessionHandler {
	return &SessionHandler{sessions: sessions, memories: memories}
}

type appendMessagesRequest struct {
	Messages []model.Message `json:"messages"`
}

func (h *SessionHandler) Append(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session id is required")
		return
	}
	var req appendMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if len(req.Messages) == 0 {
		response.Error(c, errcode.ErrInvalid, "messages are required")
		return
	}
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Role) == "" || msg.Content == "" {
			response.Error(c, errcode.ErrInvalid, "message role and content are required")
			return
		}
	}
	count, err := h.sessions.AppendMessages(c.Request.Context(), sessionID, req.Messages)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"appended": count})
}

func (h *SessionHandler) GetMessages(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session id is required")
		return
	}
	msgs, err := h.sessions.GetMessages(c.Request.Context(), sessionID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"messages": msgs})
}

func (h *SessionHandler) Extract(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session id is required")
		return
	}
	count, err := h.memories.ExtractSession(c.Request.Context(), sessionID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"new_memories": count})
}

func (h *SessionHandler) ExtractPending(c *gin.Context) {
	count, err := h.memories.ExtractPending(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"new_memories": count})
}
