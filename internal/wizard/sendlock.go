package wizard

import (
	"strings"
	"time"
)

// SendLock guards outbound email. Locked by default; Unlock arms it for a
// fixed window and the deadline is checked at use, so an idle session
// relocks without a timer.
type SendLock struct {
	unlockedUntil time.Time
}

func (l *SendLock) Unlock(phrase, requiredPhrase string, ttl time.Duration, now time.Time) error {
	if requiredPhrase != "" && strings.TrimSpace(phrase) != requiredPhrase {
		return ErrBadPhrase
	}
	l.unlockedUntil = now.Add(ttl)
	return nil
}

func (l *SendLock) Relock() {
	l.unlockedUntil = time.Time{}
}

func (l *SendLock) Unlocked(now time.Time) bool {
	return !l.unlockedUntil.IsZero() && now.Before(l.unlockedUntil)
}
