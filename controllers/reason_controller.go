package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/utils"
)

// ReasonController exposes the denial reason catalog to moderators.
type ReasonController struct {
	catalog *moderation.Catalog
}

// NewReasonController creates a ReasonController instance.
func NewReasonController(catalog *moderation.Catalog) *ReasonController {
	return &ReasonController{catalog: catalog}
}

// List returns the moderator's own and all shared reasons. An unknown sort
// field is NotFound, matching "field doesn't exist" semantics.
func (r *ReasonController) List(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	reasons, err := r.catalog.List(moderatorID, ctx.Query("sort"))
	if err != nil {
		respondModerationError(ctx, err, 50080)
		return
	}
	total, err := r.catalog.CountOwn(moderatorID)
	if err != nil {
		respondModerationError(ctx, err, 50080)
		return
	}
	utils.Success(ctx, gin.H{"reasons": reasons, "own_total": total})
}

type reasonRequest struct {
	Description string `json:"description"`
}

// Create adds a private denial reason.
func (r *ReasonController) Create(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req reasonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}

	reason, err := r.catalog.Create(moderatorID, req.Description)
	if err != nil {
		respondModerationError(ctx, err, 50090)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "denial reason created", gin.H{"reason": reason})
}

// Update edits one of the moderator's own reasons.
func (r *ReasonController) Update(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	reasonID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40450, "not found")
		return
	}

	var req reasonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40081, "invalid request payload")
		return
	}

	reason, err := r.catalog.Edit(moderatorID, uint(reasonID), req.Description)
	if err != nil {
		respondModerationError(ctx, err, 50100)
		return
	}
	utils.Success(ctx, gin.H{"reason": reason})
}

// Delete removes one of the moderator's own reasons.
func (r *ReasonController) Delete(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	reasonID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40451, "not found")
		return
	}

	if err := r.catalog.Delete(moderatorID, uint(reasonID)); err != nil {
		respondModerationError(ctx, err, 50110)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}
