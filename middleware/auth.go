package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in
	// the Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside the Gin context.
	ContextUsernameKey = "username"
	// ContextUserKey stores the loaded user record when a capability
	// middleware ran.
	ContextUserKey = "user"
)

// AuthRequired ensures the request is authenticated via JWT. Revoked tokens
// and freshly banned users are rejected even when their token is still valid.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		if utils.IsUserStampedBanned(claims.UserID) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "account banned")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// ModeratorRequired loads the authenticated user and rejects callers without
// the moderator capability. Runs after AuthRequired.
func ModeratorRequired(db *gorm.DB) gin.HandlerFunc {
	return requireRole(db, func(u *models.User) bool { return u.Moderator }, "moderator capability required")
}

// StaffRequired rejects callers without staff privilege. Runs after
// AuthRequired.
func StaffRequired(db *gorm.DB) gin.HandlerFunc {
	return requireRole(db, func(u *models.User) bool { return u.Staff }, "staff privilege required")
}

func requireRole(db *gorm.DB, allowed func(*models.User) bool, message string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := ctx.Get(ContextUserIDKey)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}

		var user models.User
		err := db.First(&user, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && user.Deleted) {
			utils.Error(ctx, http.StatusUnauthorized, 40107, "account no longer exists")
			ctx.Abort()
			return
		}
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load account")
			ctx.Abort()
			return
		}

		if !allowed(&user) {
			utils.Error(ctx, http.StatusForbidden, 40301, message)
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserKey, &user)
		ctx.Next()
	}
}
