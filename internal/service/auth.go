package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/taskmaster/backend/internal/config"
	"github.com/taskmaster/backend/internal/db"
	"github.com/taskmaster/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionCookieName = "session_token"
	maxUsernameLength = 64
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
	tokenBytes        = 32
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrMisconfigured      = errors.New("auth config invalid")
)

// dummyHash is compared against when the username is unknown so that login
// takes the same time either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskmaster-dummy-password"), bcrypt.DefaultCost)

type AuthRepo interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	InsertSession(ctx context.Context, session model.Session) error
	GetSessionUser(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type AuthService struct {
	repo          AuthRepo
	log           *slog.Logger
	validate      *validator.Validate
	sessionTTL    time.Duration
	sweepInterval time.Duration
	cookieCfg     CookieConfig
	now           func() time.Time
}

func NewAuthService(repo AuthRepo, cfg config.AuthConfig, log *slog.Logger) (*AuthService, error) {
	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil || sessionTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid SESSION_TTL", ErrMisconfigured)
	}

	sweepInterval, err := parseDuration(cfg.SessionSweepInterval, 0)
	if err != nil || sweepInterval < 0 {
		return nil, fmt.Errorf("%w: invalid SESSION_SWEEP_INTERVAL", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	if log == nil {
		log = slog.Default()
	}

	return &AuthService{
		repo:          repo,
		log:           log,
		validate:      validator.New(),
		sessionTTL:    sessionTTL,
		sweepInterval: sweepInterval,
		now:           time.Now,
		cookieCfg: CookieConfig{
			Name:     SessionCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(sessionTTL.Seconds()),
		},
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) SweepInterval() time.Duration {
	return s.sweepInterval
}

func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := s.validateSignup(username, email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, email, string(hash))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// Login answers ErrInvalidCredentials for both an unknown username and a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if !db.IsNoRows(err) {
			return nil, "", fmt.Errorf("get user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, tokenHash, err := newSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	session := model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.repo.InsertSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("insert session: %w", err)
	}

	s.log.InfoContext(ctx, "session issued", "user_id", user.ID, "session_id", session.ID)
	return user, token, nil
}

// Logout is idempotent: empty, unknown and expired tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if _, err := s.repo.DeleteSessionByHash(ctx, hashSessionToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ResolveSession maps a cookie token to its user while the session is live.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.GetSessionUser(ctx, hashSessionToken(token), s.now())
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return user, nil
}

func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

func (s *AuthService) validateSignup(username, email, password string) error {
	if username == "" || len(username) > maxUsernameLength {
		return ErrInvalidInput
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidInput
	}
	if password == "" || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteStrictMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func newSessionToken() (string, string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashSessionToken(token), nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
