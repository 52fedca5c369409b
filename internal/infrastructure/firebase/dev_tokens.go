package firebase

import (
	"context"
	"errors"
	"strings"
)

const devTokenPrefix = "dev:"

var ErrInvalidDevToken = errors.New("invalid development token")

// DevTokenVerifier accepts tokens of the form "dev:<uid>". It is only wired
// when the memory backend runs without Firebase.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, devTokenPrefix)
	if uid == token || strings.TrimSpace(uid) == "" {
		return "", ErrInvalidDevToken
	}
	return uid, nil
}

func DevToken(uid string) string {
	return devTokenPrefix + uid
}
