// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// EmailPlaceholder stands in for the subject when no email is known
const EmailPlaceholder = "user"

// ErrClaimDecode is returned when the identity token payload can't be read
var ErrClaimDecode = errors.New("identity token claims could not be decoded")

// Claims are the identity token claims the session keeps
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// DecodeClaims reads the identity token payload without verifying its
// signature. The header is not inspected. The result is only fit for
// display.
func DecodeClaims(idToken string) (*Claims, error) {
	claims := &Claims{}
	if err := decodePayload(idToken, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeClaimMap returns every claim in the token payload, unverified
func DecodeClaimMap(token string) (map[string]any, error) {
	claims := map[string]any{}
	if err := decodePayload(token, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// decodePayload unmarshals the middle segment of a compact JWT into v
func decodePayload(token string, v any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: token has %d segments", ErrClaimDecode, len(parts))
	}
	data, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClaimDecode, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrClaimDecode, err)
	}
	return nil
}
