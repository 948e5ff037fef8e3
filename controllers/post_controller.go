package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/config"
	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/utils"
)

// PostController serves the public approved feed and an author's own posts.
// Posts themselves are created by the posting flow; moderation only changes
// which ones show up here.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// ListApproved returns a page of approved posts, newest approval first,
// optionally filtered by a search term over labels, text and author.
// Unfiltered pages are cached; moderation invalidates the cache whenever a
// post enters or leaves the approved state.
func (p *PostController) ListApproved(ctx *gin.Context) {
	cfg := config.Get()
	page, perPage := parsePagination(ctx.Query("page"), ctx.Query("page_size"), cfg.PostsPerPage)
	search := ctx.Query("search")

	cacheKey := fmt.Sprintf("cache:posts:approved:page=%d:size=%d", page, perPage)
	if search == "" {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	result, err := models.GetApprovedPosts(p.db, page, perPage, search, nil)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50120, "failed to list posts")
		return
	}

	if search == "" {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: result}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, result)
}

// GetApproved returns a single approved post by its shareable identifier.
func (p *PostController) GetApproved(ctx *gin.Context) {
	post, err := models.GetApprovedPost(p.db, ctx.Param("identifier"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40460, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50121, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// ListMine returns the caller's own posts with their moderation state, the
// denial reason shown for denied ones.
func (p *PostController) ListMine(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cfg := config.Get()
	page, perPage := parsePagination(ctx.Query("page"), ctx.Query("page_size"), cfg.PostsPerPage)

	result, err := models.GetUserPosts(p.db, userID, page, perPage)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50122, "failed to list posts")
		return
	}

	items := make([]gin.H, 0, len(result.Posts))
	for i := range result.Posts {
		items = append(items, p.describeOwnPost(&result.Posts[i]))
	}
	utils.Success(ctx, gin.H{"posts": items, "has_next": result.HasNext})
}

// describeOwnPost augments a post with the latest relevant status detail the
// author is allowed to see.
func (p *PostController) describeOwnPost(post *models.Post) gin.H {
	item := gin.H{
		"identifier":        post.Identifier,
		"meme_url":          post.MemeURL,
		"created_at":        post.CreatedAt,
		"moderation_status": post.ModerationStatus,
		"approved_at":       post.ApprovedAt,
	}

	if post.ModerationStatus != models.StatusDenied {
		return item
	}

	var status models.ModerationStatus
	err := p.db.Preload("DenialReason").
		Where("post_id = ? AND result = ?", post.ID, models.ResultDenied).
		Order("created_at DESC").Order("id DESC").
		First(&status).Error
	if err != nil {
		return item
	}

	if status.DenialReason != nil {
		item["denial_reason"] = status.DenialReason.Description
	}
	if status.DenialDetail != nil {
		item["denial_detail"] = *status.DenialDetail
	}
	return item
}
