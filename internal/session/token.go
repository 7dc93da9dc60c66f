package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signal is the broadcast record written to a shared key.
type Signal struct {
	SessionID string
	UserID    int64
	Timestamp time.Time
}

type signalClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Signer signs broadcast records so a tab only reacts to signals produced by
// this service.
type Signer struct {
	secret []byte
	maxAge time.Duration
}

var ErrInvalidSignal = errors.New("invalid session signal")

// NewSigner returns a Signer whose signals expire after maxAge; zero means
// one minute.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	return &Signer{secret: []byte(secret), maxAge: maxAge}
}

func (s *Signer) Sign(sig Signal) (string, error) {
	claims := signalClaims{
		SessionID: sig.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sig.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(sig.Timestamp),
			ExpiresAt: jwt.NewNumericDate(sig.Timestamp.Add(s.maxAge)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session signal: %w", err)
	}
	return signed, nil
}

func (s *Signer) Verify(raw string) (Signal, error) {
	var claims signalClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Signal{}, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: bad subject", ErrInvalidSignal)
	}

	sig := Signal{SessionID: claims.SessionID, UserID: userID}
	if claims.IssuedAt != nil {
		sig.Timestamp = claims.IssuedAt.Time
	}
	return sig, nil
}
