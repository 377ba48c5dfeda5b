// Package token signs and verifies accept-link tokens. A token binds one
// offer to one artisan for a short window; the acceptance endpoint decodes
// it and runs the claim transaction.
package token

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenType marks accept-link tokens so other JWTs minted with the same
// secret can never be replayed against the acceptance endpoint.
const tokenType = "offer-accept"

// Claims is the accept-link token payload.
type Claims struct {
	jwt.RegisteredClaims
	Type      string `json:"typ"`
	OfferID   string `json:"off"`
	ArtisanID string `json:"art"`
}

// Sign mints a token binding offerID to artisanID, valid for ttl. The ttl
// should be slightly longer than the offer's own deadline to tolerate
// clock and delivery skew; the claim transaction still enforces the real
// deadline.
func Sign(secret, offerID, artisanID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("token: secret is required")
	}
	if offerID == "" || artisanID == "" {
		return "", fmt.Errorf("token: offerID and artisanID are required")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   artisanID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:      tokenType,
		OfferID:   offerID,
		ArtisanID: artisanID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its offer and artisan IDs. Tampered,
// expired, or wrong-type tokens are rejected.
func Parse(secret, raw string) (offerID, artisanID string, err error) {
	if secret == "" {
		return "", "", fmt.Errorf("token: secret is required")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", fmt.Errorf("token: parse: %w", err)
	}
	if !parsed.Valid {
		return "", "", errors.New("token: invalid")
	}
	if claims.Type != tokenType {
		return "", "", fmt.Errorf("token: wrong type %q", claims.Type)
	}
	if claims.OfferID == "" || claims.ArtisanID == "" {
		return "", "", errors.New("token: missing offer or artisan claim")
	}
	return claims.OfferID, claims.ArtisanID, nil
}

// AcceptURL builds the accept link delivered to an artisan.
func AcceptURL(baseURL, signed string) string {
	return fmt.Sprintf("%s/accept?token=%s", baseURL, url.QueryEscape(signed))
}
