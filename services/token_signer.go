package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialClaims is the encodable content of a scannable pickup token.
type CredentialClaims struct {
	OrderID          string `json:"order_id"` // public order id
	OrderNumber      string `json:"order_number"`
	VerificationCode string `json:"verification_code"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HMAC-signed pickup credentials. The outer
// envelope is an HS256 JWT; the embedded verification code is a second HMAC
// over the identifying fields so the code alone can be cross-checked against
// the stored credential row.
type TokenSigner struct {
	secret []byte
	window time.Duration
}

func NewTokenSigner(secret []byte, window time.Duration) *TokenSigner {
	return &TokenSigner{secret: secret, window: window}
}

// VerificationCode computes the HMAC over order id, order number and issue
// time.
func (s *TokenSigner) VerificationCode(orderID, orderNumber string, issuedAt time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%d", orderID, orderNumber, issuedAt.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue produces the signed token string for a credential issued at issuedAt.
// The token expires at issuedAt plus the configured validity window.
func (s *TokenSigner) Issue(orderID, orderNumber string, issuedAt time.Time) (string, error) {
	claims := &CredentialClaims{
		OrderID:          orderID,
		OrderNumber:      orderNumber,
		VerificationCode: s.VerificationCode(orderID, orderNumber, issuedAt),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.window)),
			Issuer:    "fulfillment-app",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and validity window, then recomputes the embedded
// verification code. Returns ErrExpiredCredential past the window and
// ErrTamperedCredential on any signature or code mismatch.
func (s *TokenSigner) Verify(tokenString string) (*CredentialClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CredentialClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrTamperedCredential
	}

	claims, ok := token.Claims.(*CredentialClaims)
	if !ok || !token.Valid {
		return nil, ErrTamperedCredential
	}
	if claims.IssuedAt == nil {
		return nil, ErrTamperedCredential
	}

	want := s.VerificationCode(claims.OrderID, claims.OrderNumber, claims.IssuedAt.Time)
	if !hmac.Equal([]byte(want), []byte(claims.VerificationCode)) {
		return nil, ErrTamperedCredential
	}

	return claims, nil
}
