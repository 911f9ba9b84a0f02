package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Coordinates is a latitude/longitude pair kept as the strings supplied by the custodian.
type Coordinates struct {
	Latitude  string
	Longitude string
}

// Location is either a coordinate pair or an opaque custodian-supplied token.
// On the wire a coordinate pair is a two-element string array and a token is a
// plain JSON string.
type Location struct {
	coords *Coordinates
	token  string
}

// AtCoordinates builds a coordinate location.
func AtCoordinates(lat, lng string) Location {
	return Location{coords: &Coordinates{Latitude: lat, Longitude: lng}}
}

// AtToken builds a token location.
func AtToken(token string) Location {
	return Location{token: token}
}

// Coordinates returns the coordinate pair when the location holds one.
func (l Location) Coordinates() (Coordinates, bool) {
	if l.coords == nil {
		return Coordinates{}, false
	}
	return *l.coords, true
}

// Token returns the opaque token when the location is not a coordinate pair.
func (l Location) Token() (string, bool) {
	if l.coords != nil {
		return "", false
	}
	return l.token, true
}

// Clone returns an independent copy.
func (l Location) Clone() Location {
	if l.coords == nil {
		return l
	}
	c := *l.coords
	return Location{coords: &c}
}

// String renders the location for logs.
func (l Location) String() string {
	if l.coords != nil {
		return l.coords.Latitude + "," + l.coords.Longitude
	}
	return l.token
}

// MarshalJSON implements json.Marshaler.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.coords != nil {
		return json.Marshal([2]string{l.coords.Latitude, l.coords.Longitude})
	}
	return json.Marshal(l.token)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Location) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("location: empty value")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var token string
		if err := json.Unmarshal(trimmed, &token); err != nil {
			return fmt.Errorf("location: %w", err)
		}
		*l = AtToken(token)
		return nil
	case '[':
		var pair []string
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return fmt.Errorf("location: coordinates must be strings: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("location: expected 2 coordinates, got %d", len(pair))
		}
		*l = AtCoordinates(pair[0], pair[1])
		return nil
	default:
		return fmt.Errorf("location: expected string or [latitude, longitude]")
	}
}

// ParseLocationArg interprets a raw invocation argument as a location. A JSON
// coordinate array or JSON string is decoded; anything else is taken verbatim
// as a token.
func ParseLocationArg(arg string) (Location, error) {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "\"") {
		var loc Location
		if err := json.Unmarshal([]byte(trimmed), &loc); err != nil {
			return Location{}, NewError(CodeMalformedPayload, fmt.Sprintf("Invalid location %q: %v", arg, err))
		}
		return loc, nil
	}
	return AtToken(arg), nil
}
