package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// NormalizeEmail lowercases and trims an email identifier. Lookups in this
// domain are case-insensitive, so storage and queries both go through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeMobile parses an international-format mobile number and returns
// its E.164 form. Numbers without a country prefix are rejected.
func NormalizeMobile(raw string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), "")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "mobile number must be in international format").
			WithTextCode(textCodeInvalidIdentifier).
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("mobile number is not valid", goerrors.CategoryBadInput).
			WithTextCode(textCodeInvalidIdentifier).
			WithCode(goerrors.CodeBadRequest)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
