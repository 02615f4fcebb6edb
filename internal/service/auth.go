package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
	"github.com/iliyamo/ai-travel-planner/internal/model"
	"github.com/iliyamo/ai-travel-planner/internal/queue"
	"github.com/iliyamo/ai-travel-planner/internal/registry"
	"github.com/iliyamo/ai-travel-planner/internal/repository"
	"github.com/iliyamo/ai-travel-planner/internal/token"
	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

const minPasswordLen = 6

// UserStore is the credential store the auth core needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u *model.User) error
	UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error
	UpdatePassword(ctx context.Context, id uint64, hash string, at time.Time) error
	Delete(ctx context.Context, id uint64) error
}

var _ UserStore = (*repository.UserRepo)(nil)

// TokenIssuer signs and checks access tokens.
type TokenIssuer interface {
	IssueAccessToken(userID uint64, email, name string) (token.AccessToken, error)
	Validate(tokenString string) bool
	DecodeUserID(tokenString string) (uint64, bool)
}

var _ TokenIssuer = (*token.Issuer)(nil)

// UserProfile is the public view of a user.
type UserProfile struct {
	ID              uint64     `json:"id"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	FullName        string     `json:"fullName"`
	PhoneNumber     *string    `json:"phoneNumber,omitempty"`
	Country         *string    `json:"country,omitempty"`
	City            *string    `json:"city,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	CreatedAt       time.Time  `json:"createdDate"`
	LastLoginAt     *time.Time `json:"lastLoginDate,omitempty"`
}

// NewUserProfile maps a stored user to its public view.
func NewUserProfile(u *model.User) UserProfile {
	return UserProfile{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		FullName:        u.FullName(),
		PhoneNumber:     u.PhoneNumber,
		Country:         u.Country,
		City:            u.City,
		DateOfBirth:     u.DateOfBirth,
		Gender:          u.Gender,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		LastLoginAt:     u.LastLoginAt,
	}
}

// Session is what a successful register, login or refresh hands back.
type Session struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	User         UserProfile
}

// ProfileFields are the user-editable profile columns.
type ProfileFields struct {
	FirstName   string
	LastName    string
	PhoneNumber *string
	Country     *string
	City        *string
	DateOfBirth *time.Time
	Gender      *string
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email    string
	Password string
	ProfileFields
}

// AuthService implements registration, login, refresh token rotation,
// logout and password management.
type AuthService struct {
	users    UserStore
	issuer   TokenIssuer
	tokens   registry.Registry
	hasher   utils.PasswordHasher
	events   queue.Publisher
	log      *zap.Logger
	now      func() time.Time
	newToken func() (string, error)

	revokeOnPasswordChange bool
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithRevokeOnPasswordChange drops every refresh token of a user whose
// password changes.
func WithRevokeOnPasswordChange(on bool) AuthOption {
	return func(s *AuthService) { s.revokeOnPasswordChange = on }
}

// WithAuthClock replaces time.Now, for tests.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithRefreshTokenSource replaces token.IssueRefreshToken, for tests.
func WithRefreshTokenSource(fn func() (string, error)) AuthOption {
	return func(s *AuthService) { s.newToken = fn }
}

// NewAuthService wires the auth core. A nil events publisher disables
// domain events; a nil logger discards logs.
func NewAuthService(users UserStore, issuer TokenIssuer, tokens registry.Registry,
	hasher utils.PasswordHasher, events queue.Publisher, log *zap.Logger, opts ...AuthOption) *AuthService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	s := &AuthService{
		users:    users,
		issuer:   issuer,
		tokens:   tokens,
		hasher:   hasher,
		events:   events,
		log:      logger.OrNop(log),
		now:      time.Now,
		newToken: token.IssueRefreshToken,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates the user and opens a session for it. The user row is
// kept even if issuing the session fails afterwards.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
		Country:      in.Country,
		City:         in.City,
		DateOfBirth:  in.DateOfBirth,
		Gender:       in.Gender,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	s.emit(ctx, queue.UserRegistered, u)
	return sess, nil
}

// Login checks credentials. Unknown email and wrong password fail the same
// way; the active flag is only looked at once the password has matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	u.LastLoginAt = &now

	sess, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.Uint64("user_id", u.ID))
	s.emit(ctx, queue.UserLoggedIn, u)
	return sess, nil
}

// Refresh rotates a refresh token. The old token is consumed before the
// new pair is issued, so of two concurrent calls with the same token only
// one gets past Consume.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := s.tokens.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, registry.ErrTokenNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	sess, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("refresh token rotated", zap.Uint64("user_id", u.ID))
	return sess, nil
}

// Logout revokes refreshToken. Unknown, already revoked and empty tokens
// all succeed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if len(next) < minPasswordLen {
		return invalid(fmt.Sprintf("new password must be at least %d characters", minPasswordLen))
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, current) {
		return ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	if s.revokeOnPasswordChange {
		if err := s.tokens.RevokeUser(ctx, userID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	s.log.Info("password changed", zap.Uint64("user_id", userID))
	s.emit(ctx, queue.UserPasswordChanged, u)
	return nil
}

// GetUserByID returns ErrUserNotFound when no such user exists.
func (s *AuthService) GetUserByID(ctx context.Context, userID uint64) (UserProfile, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return UserProfile{}, err
	}
	return NewUserProfile(u), nil
}

// GetUserByEmail returns ErrUserNotFound when no such user exists.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (UserProfile, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UserProfile{}, ErrUserNotFound
		}
		return UserProfile{}, fmt.Errorf("load user: %w", err)
	}
	return NewUserProfile(u), nil
}

// UpdateProfile overwrites the editable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, f ProfileFields) (UserProfile, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return UserProfile{}, err
	}
	now := s.now().UTC()
	u.FirstName = strings.TrimSpace(f.FirstName)
	u.LastName = strings.TrimSpace(f.LastName)
	u.PhoneNumber = f.PhoneNumber
	u.Country = f.Country
	u.City = f.City
	u.DateOfBirth = f.DateOfBirth
	u.Gender = f.Gender
	u.UpdatedAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return UserProfile{}, ErrUserNotFound
		}
		return UserProfile{}, fmt.Errorf("update user: %w", err)
	}
	return NewUserProfile(u), nil
}

// DeleteUser revokes the user's refresh tokens and removes the account.
func (s *AuthService) DeleteUser(ctx context.Context, userID uint64) error {
	if err := s.tokens.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", zap.Uint64("user_id", userID))
	s.emit(ctx, queue.UserDeleted, &model.User{ID: userID})
	return nil
}

// ValidateToken reports whether an access token is currently acceptable.
func (s *AuthService) ValidateToken(accessToken string) bool {
	return s.issuer.Validate(accessToken)
}

// UserIDFromToken attributes an access token to its user, ignoring expiry.
func (s *AuthService) UserIDFromToken(accessToken string) (uint64, bool) {
	return s.issuer.DecodeUserID(accessToken)
}

func (s *AuthService) loadUser(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// openSession issues an access/refresh pair and registers the refresh token.
func (s *AuthService) openSession(ctx context.Context, u *model.User) (*Session, error) {
	access, err := s.issuer.IssueAccessToken(u.ID, u.Email, u.FullName())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.Put(ctx, refresh, u.ID); err != nil {
		return nil, fmt.Errorf("register refresh token: %w", err)
	}
	return &Session{
		Token:        access.Token,
		RefreshToken: refresh,
		ExpiresAt:    access.ExpiresAt,
		User:         NewUserProfile(u),
	}, nil
}

// emit publishes a domain event. Failures are logged and otherwise ignored.
func (s *AuthService) emit(ctx context.Context, typ string, u *model.User) {
	ev := queue.NewEvent(typ, u.ID)
	ev.Email = u.Email
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return invalid("a valid email is required")
	}
	if len(password) < minPasswordLen {
		return invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}
