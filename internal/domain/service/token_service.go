package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/starshippsychics/trust-engine/internal/config"
	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

const (
	tokenPurposeAccess    = "access"
	tokenPurposeRefresh   = "refresh"
	tokenPurposeChallenge = "2fa_challenge"
)

type tokenClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies the three token kinds: access and refresh
// for full sessions, and the short-lived challenge token that carries an
// authenticated-but-unverified login between the trust decision and the code
// submission. Challenge tokens are signed with a separate secret so they can
// never be replayed as session tokens.
type TokenService struct {
	cfg config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// IssueTokenPair mints the access and refresh tokens for a fully
// authenticated identity.
func (s *TokenService) IssueTokenPair(identityHash string) (*models.TokenPair, error) {
	access, err := s.sign(identityHash, tokenPurposeAccess, s.cfg.AccessTokenTTL, s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(identityHash, tokenPurposeRefresh, s.cfg.RefreshTokenTTL, s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueChallengeToken mints the temporary token handed out when a second
// factor is still pending.
func (s *TokenService) IssueChallengeToken(identityHash string) (string, error) {
	token, err := s.sign(identityHash, tokenPurposeChallenge, s.cfg.ChallengeTokenTTL, s.challengeSecret())
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}
	return token, nil
}

// VerifyAccessToken returns the identity hash carried by a valid access token.
func (s *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	return s.verify(tokenString, tokenPurposeAccess, s.cfg.Secret)
}

// VerifyChallengeToken returns the identity hash carried by a valid challenge
// token. Access and refresh tokens are rejected.
func (s *TokenService) VerifyChallengeToken(tokenString string) (string, error) {
	return s.verify(tokenString, tokenPurposeChallenge, s.challengeSecret())
}

func (s *TokenService) challengeSecret() string {
	if s.cfg.ChallengeTokenSecret != "" {
		return s.cfg.ChallengeTokenSecret
	}
	return s.cfg.Secret + ":challenge"
}

func (s *TokenService) sign(identityHash, purpose string, ttl time.Duration, secret string) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityHash,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *TokenService) verify(tokenString, wantPurpose, secret string) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", domainErrors.ErrInvalidCredentials
	}
	if claims.Purpose != wantPurpose {
		return "", domainErrors.ErrInvalidCredentials
	}
	return claims.Subject, nil
}
