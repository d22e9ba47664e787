package tunnel

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestValidateAPIKey(t *testing.T) {
	valid := []string{
		testKey,
		strings.ToUpper(testKey),
		"AbCdEf0123456789aBcDeF0123456789",
		strings.Repeat("f", 32),
	}
	for _, key := range valid {
		if err := ValidateAPIKey(key); err != nil {
			t.Fatalf("%q should be accepted: %v", key, err)
		}
	}

	invalid := []string{
		"",
		testKey[:31],
		testKey + "0",
		"g123456789abcdef0123456789abcdef",
		"0123456789abcdef 123456789abcdef",
		"0123456789abcdef0123456789abcde\n",
	}
	for _, key := range invalid {
		err := ValidateAPIKey(key)
		if !errors.Is(err, ErrInvalidAPIKeyFormat) {
			t.Fatalf("%q should be rejected, got %v", key, err)
		}
	}
}

func TestValidateTunnelID(t *testing.T) {
	for _, id := range []string{"0", "42", "007", "123456789012345678901234567890"} {
		if err := ValidateTunnelID(id); err != nil {
			t.Fatalf("%q should be accepted: %v", id, err)
		}
	}
	for _, id := range []string{"", "-1", "+1", "1.5", "12a", " 12", "١٢"} {
		if err := ValidateTunnelID(id); !errors.Is(err, ErrInvalidTunnelIDFormat) {
			t.Fatalf("%q should be rejected, got %v", id, err)
		}
	}
}

func TestParseRequest(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		path    string
		wantKey string
		wantID  string
		wantErr error
	}{
		{name: "query", query: "API_key=" + testKey + "&TUNNEL_ID=42", wantKey: testKey, wantID: "42"},
		{name: "path", path: "/" + testKey + "/42/", wantKey: testKey, wantID: "42"},
		{name: "path upper hex", path: strings.ToUpper(testKey) + "/7", wantKey: strings.ToUpper(testKey), wantID: "7"},
		{name: "query wins over path", query: "API_key=" + testKey + "&TUNNEL_ID=1", path: testKey + "/2", wantKey: testKey, wantID: "1"},
		{name: "missing tunnel id", query: "API_key=" + testKey, wantErr: ErrMissingParameters},
		{name: "missing all", wantErr: ErrMissingParameters},
		{name: "bad path", path: "hello/42", wantErr: ErrMissingParameters},
		{name: "half query falls back to path", query: "API_key=x", path: testKey + "/9", wantKey: testKey, wantID: "9"},
		{name: "bad key", query: "API_key=xyz&TUNNEL_ID=42", wantErr: ErrInvalidAPIKeyFormat},
		{name: "bad id", query: "API_key=" + testKey + "&TUNNEL_ID=-4", wantErr: ErrInvalidTunnelIDFormat},
		{name: "bad key checked first", query: "API_key=xyz&TUNNEL_ID=abc", wantErr: ErrInvalidAPIKeyFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatal(err)
			}
			req, err := ParseRequest(q, tc.path)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if req != (Request{}) {
					t.Fatalf("partial result leaked: %+v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.APIKey != tc.wantKey || req.TunnelID != tc.wantID {
				t.Fatalf("got %+v", req)
			}
		})
	}
}

func TestErrorValueCarried(t *testing.T) {
	err := ValidateTunnelID("1e3")
	var te *Error
	if !errors.As(err, &te) || te.Value != "1e3" {
		t.Fatalf("offending value not carried: %#v", err)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey(testKey); got != "0123...cdef" {
		t.Fatalf("mask: %s", got)
	}
	if got := MaskKey("abc"); got != "***" {
		t.Fatalf("short mask: %s", got)
	}
}
