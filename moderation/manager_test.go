package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
)

func TestFetchPostLeasesOldestWaiting(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)

	older := createPost(t, db, author, time.Now().Add(-2*time.Hour))
	createPost(t, db, author, time.Now().Add(-1*time.Hour))

	post, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, older.ID, post.ID)

	assert.Equal(t, models.StatusModerating, reloadPost(t, db, older.ID).ModerationStatus)

	var status models.ModerationStatus
	require.NoError(t, db.Where("post_id = ?", older.ID).First(&status).Error)
	assert.Equal(t, models.ResultModerating, status.Result)
	require.NotNil(t, status.ModeratorModeratingID)
	assert.Equal(t, moderator.ID, *status.ModeratorModeratingID)
	require.NotNil(t, status.ModeratingPostID)
	assert.Equal(t, older.ID, *status.ModeratingPostID)
}

func TestFetchPostIdempotentWhileLeaseOpen(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)

	createPost(t, db, author, time.Now().Add(-2*time.Hour))
	createPost(t, db, author, time.Now().Add(-1*time.Hour))

	first, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.ModerationStatus{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFetchPostExcludesLeasedPosts(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	first := createModerator(t, db)
	second := createModerator(t, db)
	author := createUser(t, db, nil)

	older := createPost(t, db, author, time.Now().Add(-2*time.Hour))
	newer := createPost(t, db, author, time.Now().Add(-1*time.Hour))

	post, err := manager.FetchPost(first.ID)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, older.ID, post.ID)

	post, err = manager.FetchPost(second.ID)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, newer.ID, post.ID)
}

func TestFetchPostSkipsBannedAuthors(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)

	permBanned := createUser(t, db, func(u *models.User) { u.Banned = true })
	future := time.Now().Add(time.Hour)
	tempBanned := createUser(t, db, func(u *models.User) { u.BannedUntil = &future })
	past := time.Now().Add(-time.Hour)
	expiredBan := createUser(t, db, func(u *models.User) { u.BannedUntil = &past })

	createPost(t, db, permBanned, time.Now().Add(-3*time.Hour))
	createPost(t, db, tempBanned, time.Now().Add(-2*time.Hour))
	eligible := createPost(t, db, expiredBan, time.Now().Add(-1*time.Hour))

	post, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, eligible.ID, post.ID)
}

func TestFetchPostNothingAvailable(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)

	post, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestFetchPostRequiresModeratorRole(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	regular := createUser(t, db, nil)
	author := createUser(t, db, nil)
	createPost(t, db, author, time.Now().Add(-time.Hour))

	post, err := manager.FetchPost(regular.ID)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestCreateStatusRejectsSecondLease(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	first := createModerator(t, db)
	second := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))

	leased, err := manager.FetchPost(first.ID)
	require.NoError(t, err)
	require.NotNil(t, leased)

	status := models.ModerationStatus{
		PostID:                post.ID,
		Result:                models.ResultModerating,
		ModeratorResultID:     &second.ID,
		ModeratorModeratingID: &second.ID,
		ModeratingPostID:      &post.ID,
	}
	err = createStatus(db, &status)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCheckPostModerating(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	other := createModerator(t, db)
	author := createUser(t, db, nil)

	leasedPost := createPost(t, db, author, time.Now().Add(-2*time.Hour))
	otherPost := createPost(t, db, author, time.Now().Add(-1*time.Hour))

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)

	post, err := manager.CheckPostModerating(moderator.ID, leasedPost.Identifier)
	require.NoError(t, err)
	assert.Equal(t, leasedPost.ID, post.ID)

	// Not the leased post
	_, err = manager.CheckPostModerating(moderator.ID, otherPost.Identifier)
	assert.ErrorIs(t, err, ErrNotFound)

	// A moderator without a lease sees nothing
	_, err = manager.CheckPostModerating(other.ID, leasedPost.Identifier)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStopModeratingRevertsPost(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)

	require.NoError(t, manager.StopModerating(moderator.ID))
	assert.Equal(t, models.StatusWaitingModeration, reloadPost(t, db, post.ID).ModerationStatus)

	var count int64
	require.NoError(t, db.Model(&models.ModerationStatus{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// No lease is a no-op
	require.NoError(t, manager.StopModerating(moderator.ID))
}

func TestApprove(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NoError(t, manager.Approve(moderator.ID, post.Identifier))

	reloaded := reloadPost(t, db, post.ID)
	assert.Equal(t, models.StatusApproved, reloaded.ModerationStatus)
	assert.NotNil(t, reloaded.ApprovedAt)

	// The stale lease record stays as history with the lease columns cleared
	var records []models.ModerationStatus
	require.NoError(t, db.Where("post_id = ?", post.ID).Find(&records).Error)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Nil(t, record.ModeratorModeratingID)
		assert.Nil(t, record.ModeratingPostID)
	}

	// The moderator is free to fetch again
	another := createPost(t, db, author, time.Now())
	next, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, another.ID, next.ID)
}

func TestApproveRequiresMatchingLease(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	leased := createPost(t, db, author, time.Now().Add(-2*time.Hour))
	other := createPost(t, db, author, time.Now().Add(-1*time.Hour))

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)

	err = manager.Approve(moderator.ID, other.Identifier)
	assert.ErrorIs(t, err, ErrNotFound)

	// The lease is untouched
	assert.Equal(t, models.StatusModerating, reloadPost(t, db, leased.ID).ModerationStatus)
}

func TestDenyWithoutBan(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))
	reason := createSharedReason(t, db, "Contains offensive content")

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)

	input := DenyInput{DenialReasonID: reason.ID, DenialDetail: "  slur in the caption  "}
	require.NoError(t, manager.Deny(moderator.ID, post.Identifier, input))

	assert.Equal(t, models.StatusDenied, reloadPost(t, db, post.ID).ModerationStatus)

	var status models.ModerationStatus
	require.NoError(t, db.Where("post_id = ? AND result = ?", post.ID, models.ResultDenied).First(&status).Error)
	require.NotNil(t, status.DenialReasonID)
	assert.Equal(t, reason.ID, *status.DenialReasonID)
	require.NotNil(t, status.DenialDetail)
	assert.Equal(t, "slur in the caption", *status.DenialDetail)

	// No ban requested, so the author is untouched
	reloaded := reloadUser(t, db, author.ID)
	assert.False(t, reloaded.Banned)
	assert.Nil(t, reloaded.BannedUntil)
	assert.Zero(t, reloaded.TemporaryBans)
}

func TestDenyRejectsInvisibleReason(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	other := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))

	private := models.PostDenialReason{Description: "My private denial reason", ModeratorID: &other.ID}
	require.NoError(t, db.Create(&private).Error)

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)

	err = manager.Deny(moderator.ID, post.Identifier, DenyInput{DenialReasonID: private.ID})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "denial_reason")

	// Nothing committed
	assert.Equal(t, models.StatusModerating, reloadPost(t, db, post.ID).ModerationStatus)
}

func TestDenyBanEscalation(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	reason := createSharedReason(t, db, "Contains offensive content")

	denyWithBan := func(post *models.Post) {
		t.Helper()
		fetched, err := manager.FetchPost(moderator.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		require.Equal(t, post.ID, fetched.ID)
		input := DenyInput{DenialReasonID: reason.ID, BanUser: true}
		require.NoError(t, manager.Deny(moderator.ID, post.Identifier, input))
	}

	// First two bans are temporary
	for i := 1; i <= 2; i++ {
		post := createPost(t, db, author, time.Now().Add(-time.Hour))
		// Lift the previous temporary ban so the post is fetchable
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", author.ID).
			Update("banned_until", time.Now().Add(-time.Minute)).Error)

		denyWithBan(post)

		user := reloadUser(t, db, author.ID)
		assert.Equal(t, i, user.TemporaryBans)
		assert.False(t, user.Banned)
		require.NotNil(t, user.BannedUntil)
		assert.True(t, user.BannedUntil.After(time.Now()))
	}

	// Third ban is permanent
	post := createPost(t, db, author, time.Now().Add(-time.Hour))
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", author.ID).
		Update("banned_until", time.Now().Add(-time.Minute)).Error)
	denyWithBan(post)

	user := reloadUser(t, db, author.ID)
	assert.Equal(t, 3, user.TemporaryBans)
	assert.True(t, user.Banned)

	// Each ban queued one alert email
	var emails int64
	require.NoError(t, db.Model(&models.Email{}).Where("recipient_id = ?", author.ID).Count(&emails).Error)
	assert.EqualValues(t, 3, emails)
}

func TestDenyCannotBanPrivilegedAuthors(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	reason := createSharedReason(t, db, "Contains offensive content")

	cases := []struct {
		name    string
		mutate  func(*models.User)
		message string
	}{
		{"moderator author", func(u *models.User) { u.Moderator = true }, "you cannot ban another moderator"},
		{"staff author", func(u *models.User) { u.Staff = true }, "you cannot ban an admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			author := createUser(t, db, tc.mutate)
			post := createPost(t, db, author, time.Now().Add(-time.Hour))

			fetched, err := manager.FetchPost(moderator.ID)
			require.NoError(t, err)
			require.NotNil(t, fetched)

			err = manager.Deny(moderator.ID, post.Identifier, DenyInput{DenialReasonID: reason.ID, BanUser: true})
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Contains(t, vErr.Fields, "ban_user")
			assert.Contains(t, vErr.Fields["ban_user"][0], tc.message)

			// The rejected denial leaves the lease intact; release for next case
			assert.Equal(t, models.StatusModerating, reloadPost(t, db, post.ID).ModerationStatus)
			require.NoError(t, manager.StopModerating(moderator.ID))
		})
	}
}

func TestRevokeModeratorReleasesLease(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)

	require.NoError(t, manager.RevokeModerator(moderator.ID))

	assert.False(t, reloadUser(t, db, moderator.ID).Moderator)
	assert.Equal(t, models.StatusWaitingModeration, reloadPost(t, db, post.ID).ModerationStatus)

	var count int64
	require.NoError(t, db.Model(&models.ModerationStatus{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestDeleteStatusRevertsHistory(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NoError(t, manager.Approve(moderator.ID, post.Identifier))

	// Simulate the labelling artifacts on the approved post
	labels := "cat meme"
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"meme_labels": labels, "meme_labelled": true,
	}).Error)
	require.NoError(t, db.Create(&models.PostTag{PostID: post.ID, Description: "cat"}).Error)

	var approval models.ModerationStatus
	require.NoError(t, db.Where("post_id = ? AND result = ?", post.ID, models.ResultApproved).First(&approval).Error)

	// Removing the approval falls back to the superseded moderating record
	require.NoError(t, manager.DeleteStatus(approval.ID))

	reloaded := reloadPost(t, db, post.ID)
	assert.Equal(t, models.StatusModerating, reloaded.ModerationStatus)
	assert.Nil(t, reloaded.ApprovedAt)
	assert.Nil(t, reloaded.MemeLabels)
	assert.False(t, reloaded.MemeLabelled)

	var tags int64
	require.NoError(t, db.Model(&models.PostTag{}).Where("post_id = ?", post.ID).Count(&tags).Error)
	assert.EqualValues(t, 0, tags)

	// Removing the last record reverts to waiting
	var remaining models.ModerationStatus
	require.NoError(t, db.Where("post_id = ?", post.ID).First(&remaining).Error)
	require.NoError(t, manager.DeleteStatus(remaining.ID))
	assert.Equal(t, models.StatusWaitingModeration, reloadPost(t, db, post.ID).ModerationStatus)

	assert.ErrorIs(t, manager.DeleteStatus(remaining.ID), ErrNotFound)
}

func TestStatusDerivationRoundTrip(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))
	reason := createSharedReason(t, db, "Contains offensive content")

	base := time.Now()
	recompute := func() {
		t.Helper()
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return recomputeStatus(tx, post.ID)
		}))
	}
	currentStatus := func() string {
		t.Helper()
		return reloadPost(t, db, post.ID).ModerationStatus
	}

	records := []models.ModerationStatus{
		{PostID: post.ID, Result: models.ResultModerating, ModeratorResultID: &moderator.ID, CreatedAt: base},
		{PostID: post.ID, Result: models.ResultDenied, ModeratorResultID: &moderator.ID, DenialReasonID: &reason.ID, CreatedAt: base.Add(time.Second)},
		{PostID: post.ID, Result: models.ResultApproved, ModeratorResultID: &moderator.ID, CreatedAt: base.Add(2 * time.Second)},
	}
	forward := []string{models.StatusModerating, models.StatusDenied, models.StatusApproved}
	for i := range records {
		require.NoError(t, db.Create(&records[i]).Error)
		recompute()
		assert.Equal(t, forward[i], currentStatus())
	}

	// Deleting in reverse creation order walks the history back
	backward := []string{models.StatusDenied, models.StatusModerating, models.StatusWaitingModeration}
	for i := len(records) - 1; i >= 0; i-- {
		require.NoError(t, manager.DeleteStatus(records[i].ID))
		assert.Equal(t, backward[len(records)-1-i], currentStatus())
	}
}

func TestApprovalAfterDenialWins(t *testing.T) {
	db := newTestDB(t)
	manager := newTestManager(db)
	moderator := createModerator(t, db)
	author := createUser(t, db, nil)
	post := createPost(t, db, author, time.Now().Add(-time.Hour))
	reason := createSharedReason(t, db, "Contains offensive content")

	_, err := manager.FetchPost(moderator.ID)
	require.NoError(t, err)
	require.NoError(t, manager.Deny(moderator.ID, post.Identifier, DenyInput{DenialReasonID: reason.ID}))
	assert.Equal(t, models.StatusDenied, reloadPost(t, db, post.ID).ModerationStatus)

	// A later approval record supersedes the denial. Give it a strictly newer
	// timestamp so derivation order does not depend on insert speed.
	approval := models.ModerationStatus{
		PostID:            post.ID,
		Result:            models.ResultApproved,
		ModeratorResultID: &moderator.ID,
		CreatedAt:         time.Now().Add(time.Second),
	}
	require.NoError(t, db.Create(&approval).Error)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return recomputeStatus(tx, post.ID)
	}))

	reloaded := reloadPost(t, db, post.ID)
	assert.Equal(t, models.StatusApproved, reloaded.ModerationStatus)
	assert.NotNil(t, reloaded.ApprovedAt)
}
