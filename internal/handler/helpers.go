package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/pkg/errcode"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
	"github.com/xxxsen/mrecall/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrDimensionMismatch):
		response.Error(c, errcode.ErrEmbeddingFailed, "embedding dimension mismatch")
	case errors.Is(err, appErr.ErrNoProvider):
		response.Error(c, errcode.ErrExtractUnavailable, "no extract provider configured")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
