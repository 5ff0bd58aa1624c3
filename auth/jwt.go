package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/golang-jwt/jwt/v5"
)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodePayload returns the claims of a JWT without verifying its signature.
// The issuer is a trusted identity provider; a token that fails to decode is
// an integration bug and is reported as ErrMalformedToken.
func DecodePayload(token string) (jwt.MapClaims, error) {
	raw, err := payloadBytes(token)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not a json object: %w", apperror.ErrMalformedToken, err)
	}
	return claims, nil
}

// DecodeInto unmarshals the JWT payload straight into out.
func DecodeInto(token string, out any) error {
	raw, err := payloadBytes(token)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrMalformedToken, err)
	}
	return nil
}

func payloadBytes(token string) ([]byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: missing payload segment", apperror.ErrMalformedToken)
	}

	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %w", apperror.ErrMalformedToken, err)
	}
	return raw, nil
}
