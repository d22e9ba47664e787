package tunnel

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	ParamAPIKey   = "API_key"
	ParamTunnelID = "TUNNEL_ID"
)

var (
	apiKeyPattern   = regexp.MustCompile(`(?i)^[0-9a-f]{32}$`)
	tunnelIDPattern = regexp.MustCompile(`^[0-9]+$`)
	pathPattern     = regexp.MustCompile(`(?i)^([0-9a-f]{32})/([0-9]+)$`)
)

type Request struct {
	APIKey        string
	TunnelID      string
	ClientAddress string
}

// ParseRequest reads the key and tunnel id from the query string, falling
// back to a "<key>/<id>" path. Both values are validated before returning.
func ParseRequest(query url.Values, pathInfo string) (Request, error) {
	req, err := ExtractParameters(query, pathInfo)
	if err != nil {
		return Request{}, err
	}
	if err := ValidateAPIKey(req.APIKey); err != nil {
		return Request{}, err
	}
	if err := ValidateTunnelID(req.TunnelID); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ExtractParameters finds the raw key and tunnel id without validating them.
func ExtractParameters(query url.Values, pathInfo string) (Request, error) {
	if query.Has(ParamAPIKey) && query.Has(ParamTunnelID) {
		return Request{APIKey: query.Get(ParamAPIKey), TunnelID: query.Get(ParamTunnelID)}, nil
	}
	if m := pathPattern.FindStringSubmatch(strings.Trim(pathInfo, "/")); m != nil {
		return Request{APIKey: m[1], TunnelID: m[2]}, nil
	}
	return Request{}, ErrMissingParameters
}

func ValidateAPIKey(key string) error {
	if !apiKeyPattern.MatchString(key) {
		return &Error{Kind: KindInvalidAPIKeyFormat, Value: key}
	}
	return nil
}

func ValidateTunnelID(id string) error {
	if !tunnelIDPattern.MatchString(id) {
		return &Error{Kind: KindInvalidTunnelIDFormat, Value: id}
	}
	return nil
}

// MaskKey shortens an API key for log output.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
