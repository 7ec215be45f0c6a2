package domain

import "time"

// VerificationCode is a one-time numeric credential proving control of an
// email address. At most one is active per email at any time; a new request
// supersedes the previous code.
type VerificationCode struct {
	Email           string
	Code            string // 6 digits, [100000, 999999]
	PendingUsername string // desired username for the registration flow, empty for login
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

func (c VerificationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
