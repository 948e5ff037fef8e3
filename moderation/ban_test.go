package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafael-frs-a/gomemes/models"
)

func TestBanPolicyApply(t *testing.T) {
	db := newTestDB(t)
	policy := BanPolicy{PermanentBanCount: 3, TemporaryBanDuration: 24 * time.Hour}
	user := createUser(t, db, nil)

	outcome, err := policy.Apply(db, user)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Ordinal)
	assert.False(t, outcome.Permanent)
	assert.Equal(t, 2, outcome.Remaining)
	require.NotNil(t, outcome.Until)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *outcome.Until, time.Minute)

	outcome, err = policy.Apply(db, user)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Ordinal)
	assert.False(t, outcome.Permanent)
	assert.Equal(t, 1, outcome.Remaining)

	outcome, err = policy.Apply(db, user)
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Ordinal)
	assert.True(t, outcome.Permanent)
	assert.Zero(t, outcome.Remaining)
	assert.Nil(t, outcome.Until)

	persisted := reloadUser(t, db, user.ID)
	assert.True(t, persisted.Banned)
	assert.Equal(t, 3, persisted.TemporaryBans)
}

func TestBanPolicyAppliesThroughValidateUsable(t *testing.T) {
	db := newTestDB(t)
	policy := BanPolicy{PermanentBanCount: 3, TemporaryBanDuration: time.Hour}
	user := createUser(t, db, nil)

	_, err := policy.Apply(db, user)
	require.NoError(t, err)

	err = models.ValidateUsable(user, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ban time remaining:")

	// An expired temporary ban no longer blocks the account
	err = models.ValidateUsable(user, time.Now().Add(2*time.Hour))
	assert.NoError(t, err)
}

func TestOrdinalWord(t *testing.T) {
	cases := map[int]string{
		1:   "first",
		2:   "second",
		3:   "third",
		12:  "twelfth",
		13:  "13th",
		21:  "21st",
		22:  "22nd",
		23:  "23rd",
		111: "111th",
	}
	for n, want := range cases {
		assert.Equal(t, want, ordinalWord(n))
	}
}
