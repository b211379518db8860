package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mrecall/internal/model"
	"github.com/xxxsen/mrecall/internal/pkg/errcode"
	"github.com/xxxsen/mrecall/internal/pkg/response"
	"github.com/xxxsen/mrecall/internal/repo"
	"github.com/xxxsen/mrecall/internal/service"
)

type MemoryHandler struct {
	memories  *repo.MemoryRepo
	retrieval *service.RetrievalService
}

func NewMemoryHandler(memories *repo.MemoryRepo, retrieval *service.RetrievalService) *MemoryHandler {
	return &MemoryHandler{memories: memories, retrieval: retrieval}
}

func (h *MemoryHandler) Search(c *gin.Context) {
	var query model.RetrievalQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	results, err := h.retrieval.Retrieve(c.Request.Context(), query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}

func (h *MemoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	memories, err := h.memories.List(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	total, err := h.memories.Count(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"memories": memories, "total": total})
}

func (h *MemoryHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, errcode.ErrInvalid, "memory id is required")
		return
	}
	mem, err := h.memories.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, mem)
}

func (h *MemoryHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, errcode.ErrInvalid, "memory id is required")
		return
	}
	if err := h.memories.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

func (h *MemoryHandler) EmbeddingStatus(c *gin.Context) {
	response.Success(c, h.retrieval.EmbeddingStatus(c.Request.Context()))
}
