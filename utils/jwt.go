package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims carried by dashboard access tokens.
const (
	ClaimSubject = "sub"
	ClaimRole    = "role"

	RoleAdmin = "admin"
)

// GenerateToken creates a signed JWT with the given subject and role.
func GenerateToken(secret []byte, subject, role string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		ClaimSubject: subject,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(duration).Unix(),
	}
	if role != "" {
		claims[ClaimRole] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(secret []byte, tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
}

// ExtractClaims returns the subject and role of a valid token.
func ExtractClaims(secret []byte, tokenString string) (subject, role string, err error) {
	token, err := ValidateToken(secret, tokenString)
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	sub, ok := claims[ClaimSubject].(string)
	if !ok || sub == "" {
		return "", "", errors.New("token does not contain a valid 'sub' claim")
	}
	role, _ = claims[ClaimRole].(string)
	return sub, role, nil
}
