package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecretKey is used to sign and verify JWT tokens. It is set from
// configuration by InitJWT before the server starts.
var jwtSecretKey []byte

var (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

const (
	accessTokenIssuer  = "restaurant-pos-backend"
	refreshTokenIssuer = "restaurant-pos-backend-refresh"
)

var ErrJWTNotConfigured = errors.New("jwt secret not configured")

// InitJWT configures token signing.
func InitJWT(secret string, accessTTL, refreshTTL time.Duration) {
	jwtSecretKey = []byte(secret)
	if accessTTL > 0 {
		AccessTokenTTL = accessTTL
	}
	if refreshTTL > 0 {
		RefreshTokenTTL = refreshTTL
	}
}

// Claims defines the JWT claims structure
type Claims struct {
	EmployeeID int64  `json:"employee_id"`
	Username   string `json:"username,omitempty"`
	Role       string `json:"role,omitempty"` // Employee role for authorization
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a new JWT access token for an employee.
func GenerateAccessToken(employeeID int64, username string, role string) (string, error) {
	return signClaims(&Claims{
		EmployeeID: employeeID,
		Username:   username,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    accessTokenIssuer,
		},
	})
}

// GenerateRefreshToken creates a new JWT refresh token for an employee.
// Refresh tokens carry only the employee id and a longer expiry.
func GenerateRefreshToken(employeeID int64) (string, error) {
	return signClaims(&Claims{
		EmployeeID: employeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    refreshTokenIssuer,
		},
	})
}

func signClaims(claims *Claims) (string, error) {
	if len(jwtSecretKey) == 0 {
		return "", ErrJWTNotConfigured
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates an access token string.
func ValidateToken(tokenString string) (*Claims, error) {
	return parseToken(tokenString, accessTokenIssuer)
}

// ValidateRefreshToken parses and validates a refresh token string.
func ValidateRefreshToken(tokenString string) (*Claims, error) {
	return parseToken(tokenString, refreshTokenIssuer)
}

func parseToken(tokenString, issuer string) (*Claims, error) {
	if len(jwtSecretKey) == 0 {
		return nil, ErrJWTNotConfigured
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
