package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaedefolio/internal/db"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrSessionNotFound    = errors.New("session not found")
)

// Session is the authenticated identity exposed to admin views.
type Session struct {
	Token     string
	UserID    uint
	Email     string
	ExpiresAt time.Time
}

// Service implements password sign-in and server side sessions.
type Service struct {
	db     *gorm.DB
	ttl    time.Duration
	logger *zap.Logger
	broker *Broker
	now    func() time.Time
}

// NewService creates an auth service. ttl bounds the lifetime of a session.
func NewService(gdb *gorm.DB, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		db:     gdb,
		ttl:    ttl,
		logger: logger,
		broker: NewBroker(),
		now:    time.Now,
	}
}

// SignInWithPassword verifies the credentials and opens a new session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	record := db.AuthSession{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("signed in", zap.Uint("user_id", user.ID))
	s.broker.Publish(Event{Kind: EventSignedIn, UserID: user.ID, Token: record.Token, At: now})

	return &Session{
		Token:     record.Token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// GetSession returns the active session for token.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var record db.AuthSession
	if err := s.db.WithContext(ctx).Preload("User").Where("token = ?", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !record.Active(s.now()) {
		return nil, ErrSessionNotFound
	}

	return &Session{
		Token:     record.Token,
		UserID:    record.UserID,
		Email:     record.User.Email,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// SignOut revokes a single session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	var record db.AuthSession
	if err := s.db.WithContext(ctx).Where("token = ? AND revoked_at IS NULL", token).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&record).Update("revoked_at", now).Error; err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.broker.Publish(Event{Kind: EventSignedOut, UserID: record.UserID, Token: record.Token, At: now})
	return nil
}

// SignOutAll revokes every open session of the user.
func (s *Service) SignOutAll(ctx context.Context, userID uint) error {
	var records []db.AuthSession
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Find(&records).Error; err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&db.AuthSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error; err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.logger.Info("signed out everywhere", zap.Uint("user_id", userID), zap.Int("sessions", len(records)))
	for _, record := range records {
		s.broker.Publish(Event{Kind: EventSignedOut, UserID: userID, Token: record.Token, At: now})
	}
	return nil
}

// Subscribe listens for auth state changes. Call the returned func to stop.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.broker.Subscribe()
}

// Close releases every subscription.
func (s *Service) Close() {
	s.broker.Close()
}
