package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rafael-frs-a/gomemes/middleware"
	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/utils"
)

// getUserID extracts the authenticated user ID stored by AuthRequired.
func getUserID(ctx *gin.Context) (uint, bool) {
	value, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// parsePagination normalizes page/page_size query values.
func parsePagination(pageStr, sizeStr string, defaultSize int) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > 100 {
		size = defaultSize
	}
	return page, size
}

// respondModerationError maps the core's error taxonomy to the JSON envelope.
// Validation failures and uniqueness conflicts are rejected operations with
// messages, never server faults; NotFound stays NotFound so existence of
// other moderators' leases and reasons does not leak.
func respondModerationError(ctx *gin.Context, err error, baseCode int) {
	var validation *moderation.ValidationError
	switch {
	case errors.As(err, &validation):
		utils.FieldErrors(ctx, http.StatusBadRequest, baseCode+1, "validation failed", validation.Fields)
	case errors.Is(err, moderation.ErrConflict):
		utils.Error(ctx, http.StatusBadRequest, baseCode+2, "operation conflicts with existing moderation state")
	case errors.Is(err, moderation.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, baseCode+3, "not found")
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorf("moderation operation failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, baseCode+4, "internal error")
	}
}
