package moderation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rafael-frs-a/gomemes/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostTag{},
		&models.PostDenialReason{},
		&models.ModerationStatus{},
		&models.Email{},
	)
	require.NoError(t, err)
	return db
}

func newTestManager(db *gorm.DB) *Manager {
	policy := BanPolicy{PermanentBanCount: 3, TemporaryBanDuration: 24 * time.Hour}
	return NewManager(db, policy, OutboxNotifier{AppName: "GoMemes"})
}

var userSeq int

func createUser(t *testing.T, db *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()
	userSeq++
	now := time.Now()
	user := models.User{
		Username:    fmt.Sprintf("user%d", userSeq),
		Email:       fmt.Sprintf("user%d@example.com", userSeq),
		ActivatedAt: &now,
	}
	if mutate != nil {
		mutate(&user)
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createModerator(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return createUser(t, db, func(u *models.User) { u.Moderator = true })
}

// createPost makes a waiting post with an explicit creation time so queue
// order is deterministic.
func createPost(t *testing.T, db *gorm.DB, author *models.User, createdAt time.Time) *models.Post {
	t.Helper()
	post := models.Post{
		AuthorID:  author.ID,
		MemeURL:   "https://memes.example.com/" + fmt.Sprint(userSeq) + ".png",
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&post).Error)
	return &post
}

func createSharedReason(t *testing.T, db *gorm.DB, description string) *models.PostDenialReason {
	t.Helper()
	reason := models.PostDenialReason{Description: description}
	require.NoError(t, db.Create(&reason).Error)
	return &reason
}

func reloadPost(t *testing.T, db *gorm.DB, id uint) *models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, db.First(&post, id).Error)
	return &post
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}
