package db

import "time"

// AuthSession is a server side login session. The cookie only carries Token.
type AuthSession struct {
	Token     string `gorm:"primaryKey;size:36"`
	UserID    uint   `gorm:"index;not null"`
	User      User
	ExpiresAt time.Time `gorm:"index"`
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the session can still authenticate requests at now.
func (s AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
