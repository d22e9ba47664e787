package tunnel

import (
	"errors"
	"fmt"
)

// Kind classifies why a relay request was refused.
type Kind int

const (
	KindRateLimited Kind = iota + 1
	KindMissingParameters
	KindInvalidAPIKeyFormat
	KindInvalidTunnelIDFormat
	KindInvalidClientAddress
	KindRelayTransport
	KindInvalidKeyIDPair
	KindUnexpectedUpstreamStatus
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindMissingParameters:
		return "missing_parameters"
	case KindInvalidAPIKeyFormat:
		return "invalid_api_key_format"
	case KindInvalidTunnelIDFormat:
		return "invalid_tunnel_id_format"
	case KindInvalidClientAddress:
		return "invalid_client_address"
	case KindRelayTransport:
		return "relay_transport_error"
	case KindInvalidKeyIDPair:
		return "invalid_key_id_pair"
	case KindUnexpectedUpstreamStatus:
		return "unexpected_upstream_status"
	default:
		return "unknown"
	}
}

// Error is returned by every stage of the relay. Value carries the offending
// input and Status the upstream HTTP code, when relevant.
type Error struct {
	Kind   Kind
	Value  string
	Status int
	Err    error
}

var (
	ErrRateLimited           = &Error{Kind: KindRateLimited}
	ErrMissingParameters     = &Error{Kind: KindMissingParameters}
	ErrInvalidAPIKeyFormat   = &Error{Kind: KindInvalidAPIKeyFormat}
	ErrInvalidTunnelIDFormat = &Error{Kind: KindInvalidTunnelIDFormat}
	ErrInvalidClientAddress  = &Error{Kind: KindInvalidClientAddress}
	ErrRelayTransport        = &Error{Kind: KindRelayTransport}
	ErrInvalidKeyIDPair      = &Error{Kind: KindInvalidKeyIDPair}
	ErrUnexpectedStatus      = &Error{Kind: KindUnexpectedUpstreamStatus}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return "too many requests, wait before the next one"
	case KindMissingParameters:
		return "required parameters API_key and TUNNEL_ID were not provided"
	case KindInvalidAPIKeyFormat:
		return "API_key must be a string of 32 hexadecimal characters"
	case KindInvalidTunnelIDFormat:
		return "TUNNEL_ID must contain decimal digits only"
	case KindInvalidClientAddress:
		return "client IP address is not a valid IPv4 address"
	case KindRelayTransport:
		if e.Err != nil {
			return fmt.Sprintf("relay transport error: %v", e.Err)
		}
		return "relay transport error"
	case KindInvalidKeyIDPair:
		return "invalid KEY / ID pair"
	case KindUnexpectedUpstreamStatus:
		return fmt.Sprintf("unexpected upstream HTTP status: %d", e.Status)
	default:
		return "unknown relay error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func TransportError(err error) *Error {
	return &Error{Kind: KindRelayTransport, Err: err}
}

func UnexpectedStatus(code int) *Error {
	return &Error{Kind: KindUnexpectedUpstreamStatus, Status: code}
}

// AsError maps any error onto the taxonomy. Errors from outside the relay
// pipeline count as transport failures.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return TransportError(err)
}
