package auth

import (
	"errors"
	"time"

	"bloc-editor/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Hour * 24 * 3 // expires in 3 days

func secret() []byte {
	return []byte(config.AppConfig.JWTSecret)
}

// GenerateJWT signs a token for subject, typically an editing session or a
// blocctl invocation.
func GenerateJWT(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	// parse token
	jwtToken, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	// isValid
	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

// GetSubject returns the subject of a verified token.
func GetSubject(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
