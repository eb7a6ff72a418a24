// Package auth issues and validates the portal's JWT access and refresh
// tokens and tracks revoked tokens.
package auth

import (
	"cmp"
	"errors"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/freightport/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// Claims is the payload of both token types. Refresh tokens carry only the
// user id; role and company are re-read when they are exchanged.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string    `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	Role         string    `json:"role,omitempty"`
	CompanyID    string    `json:"company_id,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

// TokenPair is what a login or refresh hands back to the client
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// Subject identifies who a token pair is issued for
type Subject struct {
	UserID    uuid.UUID
	Username  string
	Role      shared.Role
	CompanyID *uuid.UUID
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// JWTService signs HS256 tokens with separate keys per token type.
type JWTService struct {
	keys       map[TokenType]signingKey
	issuer     string
	maxRefresh int
	now        func() time.Time
}

// NewJWTService falls back to the access secret when no refresh secret is set.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		keys: map[TokenType]signingKey{
			TokenTypeAccess:  {secret: []byte(cfg.Secret), ttl: cfg.AccessTokenExpiration},
			TokenTypeRefresh: {secret: []byte(cmp.Or(cfg.RefreshSecret, cfg.Secret)), ttl: cfg.RefreshTokenExpiration},
		},
		issuer:     cfg.Issuer,
		maxRefresh: cfg.MaxRefreshCount,
		now:        time.Now,
	}
}

func (s *JWTService) GenerateTokenPair(sub Subject) (*TokenPair, error) {
	return s.issue(sub, 0)
}

// Refresh issues a new pair for the subject as it is now. The refresh count
// carries over and is capped.
func (s *JWTService) Refresh(claims *Claims, current Subject) (*TokenPair, error) {
	if claims.RefreshCount >= s.maxRefresh {
		return nil, ErrMaxRefreshExceeded
	}
	if claims.UserID != current.UserID.String() {
		return nil, ErrInvalidClaims
	}
	return s.issue(current, claims.RefreshCount+1)
}

func (s *JWTService) issue(sub Subject, refreshCount int) (*TokenPair, error) {
	now := s.now()

	access := s.claims(TokenTypeAccess, sub.UserID, now)
	access.Username = sub.Username
	access.Role = string(sub.Role)
	if sub.CompanyID != nil {
		access.CompanyID = sub.CompanyID.String()
	}
	refresh := s.claims(TokenTypeRefresh, sub.UserID, now)
	refresh.RefreshCount = refreshCount

	pair := &TokenPair{
		AccessTokenExpiresAt:  access.ExpiresAt.Time,
		RefreshTokenExpiresAt: refresh.ExpiresAt.Time,
		TokenType:             "Bearer",
	}
	var err error
	if pair.AccessToken, err = s.sign(access); err != nil {
		return nil, err
	}
	if pair.RefreshToken, err = s.sign(refresh); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *JWTService) claims(kind TokenType, userID uuid.UUID, now time.Time) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.keys[kind].ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    userID.String(),
		TokenType: kind,
	}
}

func (s *JWTService) sign(c *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.keys[c.TokenType].secret)
}

func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	return s.parse(raw, TokenTypeAccess)
}

func (s *JWTService) ValidateRefreshToken(raw string) (*Claims, error) {
	return s.parse(raw, TokenTypeRefresh)
}

func (s *JWTService) parse(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.keys[want].secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.TokenType != want:
		return nil, ErrInvalidTokenType
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Actor converts access claims into the acting principal
func (c *Claims) Actor() (shared.Actor, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}
	role := shared.Role(c.Role)
	if !role.IsValid() {
		return shared.Actor{}, ErrInvalidClaims
	}
	actor := shared.Actor{UserID: userID, Username: c.Username, Role: role}
	if c.CompanyID != "" {
		companyID, err := uuid.Parse(c.CompanyID)
		if err != nil {
			return shared.Actor{}, ErrInvalidClaims
		}
		actor.CompanyID = &companyID
	}
	return actor, nil
}

func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// RemainingTTL is zero once the token has expired.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

func (s *JWTService) AccessTokenExpiration() time.Duration {
	return s.keys[TokenTypeAccess].ttl
}

func (s *JWTService) RefreshTokenExpiration() time.Duration {
	return s.keys[TokenTypeRefresh].ttl
}
