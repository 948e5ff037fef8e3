package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/utils"
)

const tokenDuration = 24 * time.Hour

// AuthController implements the thin account layer the moderation endpoints
// sit behind: register, login, logout, current user. Everything richer about
// accounts lives outside this service.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=4,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates an account and queues its activation email. Accounts stay
// unusable until activated; the stale-account sweep removes the ones whose
// activation link expired.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to process password")
		return
	}

	user := models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		email := models.Email{
			Subject:     "Account Activation",
			Body:        "Welcome to " + user.Username + "! Follow the activation link sent to your address to start posting.",
			RecipientID: user.ID,
		}
		return tx.Create(&email).Error
	})
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate") || strings.Contains(err.Error(), "UNIQUE") ||
			errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusBadRequest, 40011, "username or email already taken")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create account")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "account created", gin.H{"id": user.ID})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and account state, then issues a JWT. Banned and
// deleted accounts cannot log in; the error says why.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}

	var user models.User
	err := a.db.Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(req.Username))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "invalid credentials")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load account")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "invalid credentials")
		return
	}
	if err := models.ValidateUsable(&user, time.Now()); err != nil {
		utils.Error(ctx, http.StatusForbidden, 40310, err.Error())
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 {
		token := strings.TrimSpace(parts[1])
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			utils.BlacklistToken(token, claims.ExpiresAt.Time)
		}
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}

// Me returns the authenticated account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "account no longer exists")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
