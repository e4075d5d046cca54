package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Codec signs and verifies both token classes. The two classes use separate
// secrets so possession of one cannot forge the other.
type Codec struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (c *Codec) IssueAccess(userID, username, email string) (string, time.Time, error) {
	exp := time.Now().Add(c.AccessTTL).UTC()
	claims := AccessClaims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (c *Codec) IssueRefresh(userID string) (string, time.Time, error) {
	exp := time.Now().Add(c.RefreshTTL).UTC()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (c *Codec) VerifyAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(raw, &claims, c.AccessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (c *Codec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(raw, &claims, c.RefreshSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func parse(raw string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !tkn.Valid {
		return ErrInvalid
	}
	return nil
}

// Fingerprint is the form a refresh token takes at rest. The raw token is
// never persisted.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
