/**
 * @description
 * This file contains the authentication service: registration, login with
 * failed-attempt lockout and distributed rate limiting, credential changes and
 * HS256 token issuance/verification. Every login attempt, successful or not,
 * lands in the audit log.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Access token issuance and verification.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.]{2,49}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// AuthConfig carries the tunables of the authentication service.
type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	RefreshTTL       time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	LoginRateLimit   int
	LoginRateWindow  time.Duration
}

// authClaims is the JWT payload carried by access and refresh tokens. The
// token_use claim keeps the two from being used interchangeably.
type authClaims struct {
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	repo    store.Repository
	audit   *AuditRecorder
	limiter *RedisRateLimiter
	cfg     AuthConfig
}

// NewAuthService creates a new auth service instance. The limiter may be nil
// when Redis is unavailable; rate limiting then degrades to a no-op.
func NewAuthService(repo store.Repository, audit *AuditRecorder, limiter *RedisRateLimiter, cfg AuthConfig) *AuthService {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, audit: audit, limiter: limiter, cfg: cfg}
}

// RegisterRequest carries the self-registration fields.
type RegisterRequest struct {
	Username string
	Email    string
	Phone    string
	Password string
	FullName string
}

// Register creates a new customer user. Self-registration never assigns a
// privileged role; role changes go through the admin surface.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-50 characters of lowercase letters, digits, underscore or dot", ErrValidation)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         domain.RoleCustomer,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns the user plus a signed access token.
// Five consecutive failures lock the user out for the configured window.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	if err := s.consumeLoginBudget(ctx, username); err != nil {
		return nil, "", err
	}

	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.audit.Record(ctx, nil, domain.AuditActionLoginFailed,
				"user", strings.TrimSpace(username), "unknown username")
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if user.Locked(time.Now()) {
		s.audit.Record(ctx, &user.ID, domain.AuditActionLoginFailed,
			"user", user.Username, "login attempt while locked")
		return nil, "", ErrAccountLocked
	}
	if !user.IsActive {
		s.audit.Record(ctx, &user.ID, domain.AuditActionLoginFailed,
			"user", user.Username, "login attempt on deactivated user")
		return nil, "", ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		updated, recErr := s.repo.RecordFailedLogin(ctx, user.ID, s.cfg.MaxLoginAttempts, s.cfg.LockoutDuration)
		if recErr != nil {
			return nil, "", recErr
		}
		details := fmt.Sprintf("wrong password (attempt %d of %d)", updated.FailedLoginAttempts, s.cfg.MaxLoginAttempts)
		if updated.Locked(time.Now()) {
			details = fmt.Sprintf("wrong password; user locked for %s", s.cfg.LockoutDuration)
		}
		s.audit.Record(ctx, &user.ID, domain.AuditActionLoginFailed, "user", user.Username, details)
		return nil, "", ErrInvalidCredentials
	}

	if err := s.repo.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, &user.ID, domain.AuditActionLogin, "user", user.Username, "")
	return user, token, nil
}

func (s *AuthService) consumeLoginBudget(ctx context.Context, username string) error {
	if s.cfg.LoginRateLimit <= 0 {
		return nil
	}
	subject := strings.ToLower(strings.TrimSpace(username))
	if ip := ClientIPFrom(ctx); ip != "" {
		subject = subject + "@" + ip
	}
	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "login", subject, s.cfg.LoginRateLimit, s.cfg.LoginRateWindow)
	if err != nil {
		// Redis trouble must not take logins down with it.
		return nil
	}
	if count > s.cfg.LoginRateLimit {
		return &RateLimitError{RetryAfter: time.Duration(retryAfter) * time.Second}
	}
	return nil
}

// IssueToken signs a short-lived HS256 access token for the user.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	return s.signToken(user, "access", s.cfg.TokenTTL)
}

// IssueRefreshToken signs a longer-lived refresh token. Refresh tokens are
// only accepted by Refresh, never by VerifyToken.
func (s *AuthService) IssueRefreshToken(user *domain.User) (string, error) {
	return s.signToken(user, "refresh", s.cfg.RefreshTTL)
}

func (s *AuthService) signToken(user *domain.User, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := authClaims{
		Role:     string(user.Role),
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// Refresh exchanges a valid refresh token for a fresh access/refresh pair. The
// user is re-loaded so deactivations and lockouts cut the session short.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, string, string, error) {
	claims, err := s.parseClaims(refreshToken)
	if err != nil || claims.TokenUse != "refresh" {
		return nil, "", "", ErrInvalidCredentials
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if !user.IsActive {
		return nil, "", "", ErrUserInactive
	}
	if user.Locked(time.Now()) {
		return nil, "", "", ErrAccountLocked
	}
	access, err := s.IssueToken(user)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.IssueRefreshToken(user)
	if err != nil {
		return nil, "", "", err
	}
	return user, access, refresh, nil
}

// VerifyToken validates a bearer token and returns the embedded user id and
// role. The role in the token is advisory; callers re-load the user so role
// changes and deactivations take effect before expiry.
func (s *AuthService) VerifyToken(tokenString string) (int64, domain.Role, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return 0, "", ErrInvalidCredentials
	}
	if claims.TokenUse == "refresh" {
		return 0, "", ErrInvalidCredentials
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidCredentials
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return 0, "", ErrInvalidCredentials
	}
	return userID, role, nil
}

func (s *AuthService) parseClaims(tokenString string) (*authClaims, error) {
	var claims authClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return &claims, nil
}

// UpdateProfile changes the acting user's editable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, fullName, phone string) error {
	if !domain.HasPermission(actor.Role, domain.PermManageOwnProfile) {
		return ErrPermissionDenied
	}
	return s.repo.UpdateUserProfile(ctx, actor.ID, strings.TrimSpace(fullName), strings.TrimSpace(phone))
}

// ChangePassword verifies the current password and replaces the hash, clearing
// any forced-change flag.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if !domain.HasPermission(actor.Role, domain.PermManageOwnProfile) {
		return ErrPermissionDenied
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, actor.ID, string(hash), false)
}
