package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"NestLink/entity"
)

// ParseSession extracts the participant identity from a backend session
// token. The signature is not checked here: the backend verifies the token
// on every gateway and channel call, and the core holds no signing secret.
func ParseSession(raw string) (*entity.SessionClaims, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	session := &entity.SessionClaims{}
	switch id := claims["id"].(type) {
	case string:
		session.UserID = id
	case float64:
		session.UserID = fmt.Sprintf("%.0f", id)
	}
	if email, ok := claims["email"].(string); ok {
		session.Email = email
	}

	if session.UserID == "" && session.Email == "" {
		return nil, fmt.Errorf("session token carries no identity")
	}
	return session, nil
}
