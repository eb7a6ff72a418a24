package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/auth"
	"github.com/freightport/backend/internal/infrastructure/logger"
	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	JWTClaimsKey  = "jwt_claims"
	ActorKey      = "actor"
	UserIDKey     = "user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// TokenQueryParam carries the access token on WebSocket upgrades
	TokenQueryParam = "token"
)

// JWTMiddlewareConfig controls which requests must carry an access token.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Revocations is optional. Lookups fail open.
	Revocations      auth.Revocations
	SkipPaths        []string
	SkipPathPrefixes []string
	// QueryTokenPaths accept ?token= when no header is present
	QueryTokenPaths []string
	OnError         func(c *gin.Context, err error)
	Logger          *zap.Logger
}

// DefaultJWTConfig leaves the public portal routes open.
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/api/v1/ping",
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/auth/wechat/login",
			"/api/v1/tracking/webhook",
		},
		SkipPathPrefixes: []string{docsPrefix},
		QueryTokenPaths:  []string{"/api/v1/ws/notifications"},
	}
}

func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig validates the bearer token and stores the
// caller as an Actor on the gin context.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if cfg.public(c.Request.URL.Path) {
			c.Next()
			return
		}

		raw, problem := cfg.bearer(c)
		if raw == "" {
			cfg.reject(c, log, auth.ErrInvalidToken, problem)
			return
		}
		claims, err := cfg.JWTService.ValidateAccessToken(raw)
		if err != nil {
			cfg.reject(c, log, err, "Token validation failed")
			return
		}
		if why := cfg.revoked(c.Request.Context(), log, claims); why != "" {
			cfg.reject(c, log, auth.ErrTokenRevoked, why)
			return
		}
		actor, err := claims.Actor()
		if err != nil {
			cfg.reject(c, log, err, "Malformed token claims")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(ActorKey, actor)
		c.Set(UserIDKey, claims.UserID)

		ctx := logger.WithField(c.Request.Context(), logger.KeyUserID, claims.UserID)
		if claims.CompanyID != "" {
			ctx = logger.WithField(ctx, logger.KeyCompanyID, claims.CompanyID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (cfg JWTMiddlewareConfig) public(path string) bool {
	if slices.Contains(cfg.SkipPaths, path) {
		return true
	}
	return slices.ContainsFunc(cfg.SkipPathPrefixes, func(p string) bool {
		return strings.HasPrefix(path, p)
	})
}

// bearer returns the raw token, or an empty token and the reason it is missing.
func (cfg JWTMiddlewareConfig) bearer(c *gin.Context) (string, string) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		if slices.Contains(cfg.QueryTokenPaths, c.Request.URL.Path) && c.Query(TokenQueryParam) != "" {
			return c.Query(TokenQueryParam), ""
		}
		return "", "Missing authorization header"
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok {
		return "", "Invalid authorization header format"
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", "Missing token"
	}
	return token, ""
}

// revoked checks single-token logout and user-wide cutoffs. A store error is
// logged and the token is let through.
func (cfg JWTMiddlewareConfig) revoked(ctx context.Context, log *zap.Logger, claims *auth.Claims) string {
	if cfg.Revocations == nil {
		return ""
	}
	if claims.ID != "" {
		hit, err := cfg.Revocations.TokenRevoked(ctx, claims.ID)
		if err != nil {
			log.Error("revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
		} else if hit {
			return "Token has been revoked"
		}
	}
	hit, err := cfg.Revocations.UserRevoked(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		log.Error("revocation lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return ""
	}
	if hit {
		return "User session has been invalidated"
	}
	return ""
}

func (cfg JWTMiddlewareConfig) reject(c *gin.Context, log *zap.Logger, err error, reason string) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}
	log.Warn("request rejected by auth",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path))
	code, text := AuthErrorCode(err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(code, text, GetRequestID(c)))
}

// AuthErrorCode maps token errors to response codes
func AuthErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return dto.ErrCodeTokenMaxRefresh, "Refresh limit reached, please log in again"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims):
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
	return dto.ErrCodeUnauthorized, "Authentication required"
}

func GetJWTClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Value(JWTClaimsKey).(*auth.Claims)
	return claims
}

// GetActor returns the authenticated caller
func GetActor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := c.Value(ActorKey).(shared.Actor)
	return actor, ok
}

// MustActor panics outside JWTAuthMiddleware.
func MustActor(c *gin.Context) shared.Actor {
	actor, ok := GetActor(c)
	if !ok {
		panic("middleware: no actor on context")
	}
	return actor
}

// RequireRoles answers 403 unless the caller holds one of roles.
func RequireRoles(roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		switch {
		case !ok:
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.Fail(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
		case !slices.Contains(roles, actor.Role):
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.Fail(dto.ErrCodeForbidden, "Insufficient role for this operation", GetRequestID(c)))
		default:
			c.Next()
		}
	}
}

func RequireStaff() gin.HandlerFunc {
	return RequireRoles(shared.RoleAdmin, shared.RoleOperator)
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(shared.RoleAdmin)
}
