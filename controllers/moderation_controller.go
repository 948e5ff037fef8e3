package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/utils"
)

// ModerationController exposes the lease lifecycle: fetch the next post,
// inspect the leased post, release it, approve or deny it.
type ModerationController struct {
	db      *gorm.DB
	manager *moderation.Manager
}

// NewModerationController creates a ModerationController instance.
func NewModerationController(db *gorm.DB, manager *moderation.Manager) *ModerationController {
	return &ModerationController{db: db, manager: manager}
}

// Fetch returns the moderator's current lease or opens one on the next
// eligible post. An empty result means there is nothing to moderate.
func (m *ModerationController) Fetch(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post, err := m.manager.FetchPost(moderatorID)
	if err != nil {
		respondModerationError(ctx, err, 50030)
		return
	}
	if post == nil {
		utils.Success(ctx, gin.H{"post": nil, "message": "nothing to moderate"})
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// Show returns the moderator's leased post; 404 for anything that is not
// their active lease.
func (m *ModerationController) Show(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post, err := m.manager.CheckPostModerating(moderatorID, ctx.Param("identifier"))
	if err != nil {
		respondModerationError(ctx, err, 50040)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// Release drops the moderator's active lease; the post goes back to the
// queue. No-op without a lease.
func (m *ModerationController) Release(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := m.manager.StopModerating(moderatorID); err != nil {
		respondModerationError(ctx, err, 50050)
		return
	}
	utils.InvalidateByPrefix("cache:posts:approved:")
	utils.Success(ctx, gin.H{"released": true})
}

// Approve accepts the moderator's leased post.
func (m *ModerationController) Approve(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := m.manager.Approve(moderatorID, ctx.Param("identifier")); err != nil {
		respondModerationError(ctx, err, 50060)
		return
	}
	utils.InvalidateByPrefix("cache:posts:approved:")
	utils.Success(ctx, gin.H{"approved": true})
}

type denyRequest struct {
	DenialReasonID uint   `json:"denial_reason_id"`
	DenialDetail   string `json:"denial_detail"`
	BanUser        bool   `json:"ban_user"`
}

// Deny rejects the moderator's leased post, citing a denial reason and
// optionally banning the author. Bad input comes back as field errors.
func (m *ModerationController) Deny(ctx *gin.Context) {
	moderatorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req denyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}
	if req.DenialReasonID == 0 {
		utils.FieldErrors(ctx, http.StatusBadRequest, 40071, "validation failed",
			gin.H{"denial_reason": []string{"this field is required"}})
		return
	}

	input := moderation.DenyInput{
		DenialReasonID: req.DenialReasonID,
		DenialDetail:   utils.Sanitize(req.DenialDetail),
		BanUser:        req.BanUser,
	}
	if err := m.manager.Deny(moderatorID, ctx.Param("identifier"), input); err != nil {
		respondModerationError(ctx, err, 50070)
		return
	}
	utils.InvalidateByPrefix("cache:posts:approved:")
	utils.Success(ctx, gin.H{"denied": true})
}
