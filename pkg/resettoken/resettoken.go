package resettoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Package resettoken implements the derived password-reset token. A token is
// never persisted: it is an HMAC over the account id, the current password
// hash, and the last-login timestamp, plus an embedded issue time. Changing
// any of those inputs (which redeeming the token does) invalidates it, and
// the issue time bounds its lifetime.

var ErrBadUID = errors.New("malformed uid")

// EncodeUID encodes an account id as the opaque uid carried in reset links.
// It identifies the account only; the token provides the integrity.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(s string) (int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrBadUID
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadUID
	}
	return id, nil
}

// Generator mints and checks reset tokens against current account state.
type Generator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGenerator(secret string, ttl time.Duration) *Generator {
	return &Generator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests use it to age tokens.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Make builds a token of the form <base36 issue seconds>-<base64 MAC>.
func (g *Generator) Make(accountID int64, passwordHash string, lastLogin *time.Time) string {
	ts := strconv.FormatInt(g.now().Unix(), 36)
	return ts + "-" + g.sign(accountID, passwordHash, lastLogin, ts)
}

// Check reports whether token matches the account's current state and is
// inside the expiry window. Comparison is constant time.
func (g *Generator) Check(accountID int64, passwordHash string, lastLogin *time.Time, token string) bool {
	ts, mac, ok := splitToken(token)
	if !ok {
		return false
	}
	issued, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return false
	}
	now := g.now().Unix()
	if issued > now || now-issued > int64(g.ttl.Seconds()) {
		return false
	}
	want := g.sign(accountID, passwordHash, lastLogin, ts)
	return hmac.Equal([]byte(want), []byte(mac))
}

func (g *Generator) sign(accountID int64, passwordHash string, lastLogin *time.Time, ts string) string {
	login := ""
	if lastLogin != nil {
		login = lastLogin.UTC().Format(time.RFC3339Nano)
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(strconv.FormatInt(accountID, 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(passwordHash))
	mac.Write([]byte{0})
	mac.Write([]byte(login))
	mac.Write([]byte{0})
	mac.Write([]byte(ts))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// splitToken separates the timestamp from the MAC. The MAC alphabet contains
// '-' so only the first separator counts.
func splitToken(token string) (ts, mac string, ok bool) {
	i := strings.IndexByte(token, '-')
	if i <= 0 || i == len(token)-1 {
		return "", "", false
	}
	return token[:i], token[i+1:], true
}
