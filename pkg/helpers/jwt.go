package helpers

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errInvalidToken = errors.New("invalid token")

// JWTManager handles generation and validation of the access/refresh token pair.
// Tokens are stateless: validity is signature plus expiry, nothing server-side.
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// Claims carries the account id as the subject plus a token type discriminator
// so a refresh token can never pass access-token validation.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// AccountID parses the subject back into an account id.
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errInvalidToken
	}
	return id, nil
}

func (m *JWTManager) GenerateAccessToken(accountID int64) (string, time.Time, error) {
	return m.generate(accountID, tokenTypeAccess, m.AccessSecret, m.AccessTTL)
}

func (m *JWTManager) GenerateRefreshToken(accountID int64) (string, time.Time, error) {
	return m.generate(accountID, tokenTypeRefresh, m.RefreshSecret, m.RefreshTTL)
}

func (m *JWTManager) generate(accountID int64, typ string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, tokenTypeAccess, m.AccessSecret)
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, tokenTypeRefresh, m.RefreshSecret)
}

// parseToken collapses expired, malformed, and bad-signature failures into one
// error so callers cannot tell which check rejected the token.
func parseToken(tokenStr, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}
	if claims.TokenType != typ {
		return nil, errInvalidToken
	}
	return claims, nil
}
