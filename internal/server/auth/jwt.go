// Package auth issues and verifies the access tokens field workers'
// devices present to the screening server.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the id of the worker the token
// was issued to.
type Claims struct {
	jwt.RegisteredClaims
	WorkerID string
}

func GenerateToken(workerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		WorkerID: workerID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// GetWorkerIDFromToken verifies tokenString and returns its worker id.
// Every failure wraps common.ErrInvalidToken.
func GetWorkerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.WorkerID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.WorkerID, nil
}
