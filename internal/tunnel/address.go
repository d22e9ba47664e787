package tunnel

import (
	"net"
	"net/netip"
	"regexp"
	"strings"
)

const mappedPrefixLen = len("::ffff:")

var mappedIPv4Pattern = regexp.MustCompile(`(?i)^::ffff:(\d{1,3}\.){3}\d{1,3}$`)

// ResolveClientAddress turns the connection's source address into a plain
// IPv4 literal. An IPv4-mapped IPv6 address is unwrapped; anything else that
// is not IPv4 is rejected. No name resolution happens here.
func ResolveClientAddress(raw string) (string, error) {
	addr := stripPort(strings.TrimSpace(raw))

	if isIPv6(addr) {
		addr = UnmapIPv4(addr)
	}

	if !IsIPv4(addr) {
		return "", &Error{Kind: KindInvalidClientAddress, Value: raw}
	}
	return addr, nil
}

// UnmapIPv4 returns the embedded IPv4 literal of a "::ffff:a.b.c.d" address
// and leaves every other string untouched.
func UnmapIPv4(addr string) string {
	if mappedIPv4Pattern.MatchString(addr) {
		return addr[mappedPrefixLen:]
	}
	return addr
}

func IsIPv4(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return ip.Is4()
}

func isIPv6(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return ip.Is6()
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
}
