package utils

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseSubjectFromJWT extracts the "sub" claim from tokenString without
// verifying the signature. The engine only needs the user identity for
// scoping queued operations; authenticity of the token is the backend's
// concern and is enforced server-side on every request.
func ParseSubjectFromJWT(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("get subject claim: %w", err)
	}
	if sub == "" {
		return "", errors.New("empty subject claim")
	}

	return sub, nil
}
