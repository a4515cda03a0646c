// Package phone normalizes contact numbers to E.164.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalid = errors.New("invalid phone number")

const DefaultRegion = "TR"

// Normalize parses raw in region (a CLDR code such as "TR") and returns its
// E.164 form. Empty input yields an empty string and no error.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Display renders an E.164 number in national format for the region, or
// returns it unchanged when it cannot be parsed.
func Display(e164, region string) string {
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(e164, strings.ToUpper(region))
	if err != nil {
		return e164
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}
