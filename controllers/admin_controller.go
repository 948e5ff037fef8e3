package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/services"
	"github.com/rafael-frs-a/gomemes/utils"
)

// AdminController holds the staff-only membership operations. Both of them
// interact with the lease protocol: taking away the moderator role or the
// whole account releases any lease the user holds in the same transaction.
type AdminController struct {
	db      *gorm.DB
	manager *moderation.Manager
}

// NewAdminController creates an AdminController instance.
func NewAdminController(db *gorm.DB, manager *moderation.Manager) *AdminController {
	return &AdminController{db: db, manager: manager}
}

type moderatorRequest struct {
	Moderator bool `json:"moderator"`
}

// SetModerator grants or revokes the moderator capability.
func (a *AdminController) SetModerator(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40470, "user not found")
		return
	}

	var req moderatorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}

	var user models.User
	dbErr := a.db.First(&user, userID).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40471, "user not found")
		return
	}
	if dbErr != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50130, "failed to load user")
		return
	}

	if req.Moderator {
		err = a.manager.GrantModerator(user.ID)
	} else {
		err = a.manager.RevokeModerator(user.ID)
	}
	if err != nil {
		respondModerationError(ctx, err, 50131)
		return
	}
	utils.Success(ctx, gin.H{"id": user.ID, "moderator": req.Moderator})
}

// DeleteStatus removes one moderation history record, reverting the post's
// displayed status to whatever the surviving history derives. Correction tool
// for staff; regular moderation never deletes history.
func (a *AdminController) DeleteStatus(ctx *gin.Context) {
	statusID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40474, "not found")
		return
	}

	if err := a.manager.DeleteStatus(uint(statusID)); err != nil {
		respondModerationError(ctx, err, 50134)
		return
	}
	utils.InvalidateByPrefix("cache:posts:approved:")
	utils.Success(ctx, gin.H{"deleted": true})
}

// DeleteUser anonymizes the account immediately, skipping the grace window
// the self-service flow gets. Any active moderation lease is released first.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40472, "user not found")
		return
	}

	var user models.User
	dbErr := a.db.First(&user, userID).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) || (dbErr == nil && user.Deleted) {
		utils.Error(ctx, http.StatusNotFound, 40473, "user not found")
		return
	}
	if dbErr != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50132, "failed to load user")
		return
	}

	if err := services.ExecuteDeleteRequest(a.db, &user); err != nil {
		respondModerationError(ctx, err, 50133)
		return
	}
	utils.InvalidateByPrefix("cache:posts:approved:")
	utils.Success(ctx, gin.H{"deleted": true})
}
