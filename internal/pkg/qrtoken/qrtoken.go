// Package qrtoken issues and verifies the signed bearer tokens embedded in
// facility QR codes. A token binds a QR code ID to a validity window; the
// enrollment engine only ever sees decoded claims.
package qrtoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("qr token has expired")
	ErrTokenInvalid = errors.New("qr token is invalid")
)

// TokenType marks QR tokens apart from any other JWT this service may mint
const TokenType = "qr_token"

// Claims represents the QR token claims
type Claims struct {
	QRCodeID  string `json:"qr_code_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Generate signs a new QR token for the given QR code ID
func Generate(qrCodeID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		QRCodeID:  qrCodeID,
		TokenType: TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "camlock-api",
			Subject:   qrCodeID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify validates a scanned QR token and returns its claims. Any malformed,
// unsigned or wrongly-signed token yields ErrTokenInvalid; an expired token
// yields ErrTokenExpired.
func Verify(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != TokenType || claims.QRCodeID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
