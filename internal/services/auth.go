package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"inquiryflow/internal/config"
	"inquiryflow/internal/domain"
	"inquiryflow/internal/metrics"
	"inquiryflow/internal/util"
	apperrors "inquiryflow/pkg/errors"

	"go.uber.org/zap"
	"goa.design/goa/v3/security"
	"gorm.io/gorm"
)

const (
	scopeStaff = "staff"
	scopeAdmin = "admin"
)

type ctxKey int

const userKey ctxKey = iota

// UserFromContext returns the authenticated staff account
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok
}

// LoginPayload is the login request body
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the login response body
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthService implements staff login and token checks
type AuthService struct {
	db  *gorm.DB
	cfg *config.AuthConfig
	log *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, cfg *config.AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{db: db, cfg: cfg, log: log}
}

// Login exchanges staff credentials for a bearer token
func (s *AuthService) Login(ctx context.Context, r Request) (any, error) {
	var p LoginPayload
	if err := r.Decode(&p); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(p.Username)
	password := strings.TrimSpace(p.Password)
	if username == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "username and password are required")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("login failed: unknown user", zap.String("username", username))
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "incorrect username or password")
		}
		return nil, err
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		s.log.Info("login failed: bad password", zap.String("username", username))
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "incorrect username or password")
	}
	if !user.IsActive {
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user account is inactive")
	}

	now := s.db.NowFunc()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.log.Warn("failed to record last login", zap.String("username", username), zap.Error(err))
	}

	token, err := util.GenerateToken(s.cfg, &user)
	if err != nil {
		return nil, err
	}
	metrics.RecordAuthAttempt(true)
	s.log.Info("login succeeded", zap.String("username", username), zap.Bool("admin", user.IsAdmin))
	return &LoginResult{AccessToken: token, TokenType: "bearer"}, nil
}

// JWTAuth validates token, loads its active account and checks the scheme's
// required scopes. The account is stored on the returned context.
func (s *AuthService) JWTAuth(ctx context.Context, token string, scheme *security.JWTScheme) (context.Context, error) {
	claims, err := util.ValidateToken(s.cfg, token)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "invalid or expired token")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", claims.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user account is inactive")
	}

	if scheme != nil && len(scheme.RequiredScopes) > 0 && !hasScope(&user, scheme.RequiredScopes) {
		return nil, apperrors.New(apperrors.ErrCodeForbidden, "insufficient permissions")
	}
	return context.WithValue(ctx, userKey, &user), nil
}

func hasScope(user *domain.User, required []string) bool {
	for _, scope := range required {
		switch scope {
		case scopeAdmin:
			if user.IsAdmin {
				return true
			}
		case scopeStaff:
			if util.RequireStaff(user) == nil && user.Role != domain.RoleVolunteer {
				return true
			}
		}
	}
	return false
}

// Require wraps a handler with bearer token authentication
func (s *AuthService) Require(scopes ...string) func(http.HandlerFunc) http.HandlerFunc {
	scheme := &security.JWTScheme{
		Name:           "jwt",
		Scopes:         []string{scopeStaff, scopeAdmin},
		RequiredScopes: scopes,
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(r.Context(), w, apperrors.New(apperrors.ErrCodeUnauthorized, "authorization header required"))
				return
			}
			ctx, err := s.JWTAuth(r.Context(), token, scheme)
			if err != nil {
				writeError(r.Context(), w, err)
				return
			}
			next(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
