// Package auth issues and verifies the bearer credentials used by the blog
// backend. Tokens are stateless HS256 JWTs: validity is determined entirely
// by signature and expiry, there is no server-side session store.
package auth

import (
	"errors"
	"time"

	"blogapi/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService mints and verifies access and refresh tokens. Each kind is
// signed with its own secret so compromise of one does not compromise the
// other. All methods are pure computation and safe for concurrent use.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func generateToken(subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})

	return token.SignedString(secretKey)
}

func parseSubject(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// IssueAccessToken mints a short-lived access token for the given subject.
func (s *TokenService) IssueAccessToken(subject string) (string, error) {
	return generateToken(subject, s.accessSecret, s.accessTTL)
}

// IssueRefreshToken mints a long-lived refresh token for the given subject.
func (s *TokenService) IssueRefreshToken(subject string) (string, error) {
	return generateToken(subject, s.refreshSecret, s.refreshTTL)
}

// ValidateAccessToken reports whether the token is a well-formed access token
// with a valid signature that has not expired. Malformed or tampered input
// returns false, never an error.
func (s *TokenService) ValidateAccessToken(token string) bool {
	_, err := parseSubject(token, s.accessSecret)
	return err == nil
}

// ValidateRefreshToken is ValidateAccessToken for refresh tokens.
func (s *TokenService) ValidateRefreshToken(token string) bool {
	_, err := parseSubject(token, s.refreshSecret)
	return err == nil
}

// SubjectFromAccessToken verifies the access token and returns the subject it
// was issued for. Invalid tokens yield ErrInvalidToken (expired tokens are
// reported by the underlying parser and unwrap to jwt.ErrTokenExpired).
func (s *TokenService) SubjectFromAccessToken(token string) (string, error) {
	return parseSubject(token, s.accessSecret)
}

// SubjectFromRefreshToken verifies the refresh token and returns its subject.
func (s *TokenService) SubjectFromRefreshToken(token string) (string, error) {
	return parseSubject(token, s.refreshSecret)
}

// Refresh rotates a valid refresh token into a fresh TokenPair for the same
// subject. An invalid or expired refresh token yields ErrorUnauthorized and
// no partial result.
func (s *TokenService) Refresh(refreshToken string) (*TokenPair, error) {
	subject, err := parseSubject(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}
	return s.IssuePair(subject)
}

// IssuePair mints a new access and refresh token for the subject.
func (s *TokenService) IssuePair(subject string) (*TokenPair, error) {
	access, err := s.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(subject)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IsExpired reports whether err from token parsing indicates expiry rather
// than tampering.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
