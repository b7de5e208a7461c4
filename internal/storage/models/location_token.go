package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrLocationParse is matched by every LocationParseError.
var ErrLocationParse = errors.New("malformed location token")

// LocationParseError reports a token that is not of the form Type[Reference].
type LocationParseError struct {
	Token string
}

func (e *LocationParseError) Error() string {
	return fmt.Sprintf("malformed location %q: expected Type[Reference]", e.Token)
}

// Is makes errors.Is(err, ErrLocationParse) hold.
func (e *LocationParseError) Is(target error) bool {
	return target == ErrLocationParse
}

// locationTokenRegex matches Type[Reference] where both parts are Unicode
// letters, digits or underscores.
var locationTokenRegex = regexp.MustCompile(`^([\p{L}\p{N}_]+)\[([\p{L}\p{N}_]+)\]$`)

// ParseLocationKey parses a Type[Reference] token.
func ParseLocationKey(token string) (LocationKey, error) {
	m := locationTokenRegex.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return LocationKey{}, &LocationParseError{Token: token}
	}
	return LocationKey{Type: m[1], Reference: m[2]}, nil
}

// LooksLikeLocation reports whether token parses as a location key.
func LooksLikeLocation(token string) bool {
	return locationTokenRegex.MatchString(token)
}
