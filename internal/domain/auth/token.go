package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const claimSessionID = "session_id"

// SessionToken signs and verifies browser session JWTs (HS256).
type SessionToken struct {
	secretKey []byte
	ttl       time.Duration
}

// NewSessionToken builds a token helper using the provided secret.
func NewSessionToken(secretKey string) *SessionToken {
	return &SessionToken{
		secretKey: []byte(secretKey),
		ttl:       time.Hour,
	}
}

// WithTTL allows customising the expiration duration.
func (st *SessionToken) WithTTL(ttl time.Duration) *SessionToken {
	if ttl > 0 {
		st.ttl = ttl
	}
	return st
}

func (st *SessionToken) TTL() time.Duration {
	return st.ttl
}

// NewSession 生成新的会话 ID 并签发令牌
func (st *SessionToken) NewSession() (string, string, error) {
	id := uuid.NewString()
	token, err := st.GenerateToken(id)
	if err != nil {
		return "", "", err
	}
	return id, token, nil
}

// GenerateToken issues a JWT for the provided session identifier.
func (st *SessionToken) GenerateToken(sessionID string) (string, error) {
	if st == nil {
		return "", errors.New("session token is nil")
	}
	if len(st.secretKey) == 0 {
		return "", errors.New("session token secret is empty")
	}
	if sessionID == "" {
		return "", errors.New("session id is empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		claimSessionID: sessionID,
		"exp":          now.Add(st.ttl).Unix(),
		"iat":          now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(st.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken validates the JWT and extracts the session identifier.
func (st *SessionToken) VerifyToken(tokenString string) (string, error) {
	if st == nil {
		return "", errors.New("session token is nil")
	}
	if len(st.secretKey) == 0 {
		return "", errors.New("session token secret is empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return st.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sessionID, ok := claims[claimSessionID].(string)
	if !ok || sessionID == "" {
		return "", errors.New("invalid session_id claim")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", fmt.Errorf("invalid session_id claim: %w", err)
	}
	return sessionID, nil
}
