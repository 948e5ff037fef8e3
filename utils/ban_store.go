package utils

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// A ban must take effect immediately, including for JWTs issued before it.
// Ban stamps mark the user so the auth middleware rejects in-flight tokens;
// the stamp expires with a temporary ban and is refreshed from the database
// on later logins for permanent ones.

var (
	banStamps   = map[uint]time.Time{}
	banStampsMu sync.RWMutex
)

const permanentStampTTL = 30 * 24 * time.Hour

// StampUserBanned records that the user was just banned. A nil until means a
// permanent ban.
func StampUserBanned(userID uint, until *time.Time) {
	ttl := permanentStampTTL
	if until != nil {
		ttl = time.Until(*until)
		if ttl <= 0 {
			return
		}
	}

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, banStampKey(userID), "1", ttl).Err()
		return
	}
	banStampsMu.Lock()
	banStamps[userID] = time.Now().Add(ttl)
	banStampsMu.Unlock()
}

// IsUserStampedBanned reports whether a still-active ban stamp exists.
func IsUserStampedBanned(userID uint) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, banStampKey(userID)).Result()
		if err == nil {
			return n > 0
		}
		return false
	}

	banStampsMu.RLock()
	expires, ok := banStamps[userID]
	banStampsMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expires) {
		banStampsMu.Lock()
		delete(banStamps, userID)
		banStampsMu.Unlock()
		return false
	}
	return true
}

func banStampKey(userID uint) string {
	return "user:banned:" + strconv.FormatUint(uint64(userID), 10)
}
