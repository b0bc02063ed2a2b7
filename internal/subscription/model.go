package subscription

import "time"

type Subscription struct {
	UserID       int64
	IsPremium    bool
	PremiumUntil *time.Time
}

// Expire collapses expired premium state at read time. It returns the
// effective record and whether the store needs a corrective write.
// Expiry is checked on every read, there is no background sweep.
func Expire(sub Subscription, now time.Time) (Subscription, bool) {
	if !sub.IsPremium {
		return sub, false
	}
	if sub.PremiumUntil == nil || !sub.PremiumUntil.After(now) {
		sub.IsPremium = false
		sub.PremiumUntil = nil
		return sub, true
	}
	return sub, false
}
