// Package egress decides whether the server may fetch a caller-supplied URL, and performs the fetch.
package egress

import (
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"owasp-controls-demo/backend/internal/decision"
)

// Verdict is the outcome of a validation.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
)

// Decision records one validation. URL is set only when the verdict is allow.
type Decision struct {
	URL     *url.URL
	Scheme  string
	Host    string
	Verdict Verdict
	Reason  string
}

// Allowed reports whether the URL may be fetched.
func (d *Decision) Allowed() bool { return d != nil && d.Verdict == VerdictAllow }

var (
	errMalformed       = decision.Deny(decision.KindEgressPolicy, decision.ReasonMalformed)
	errScheme          = decision.Deny(decision.KindEgressPolicy, decision.ReasonSchemeNotAllowed)
	errInternalAddress = decision.Deny(decision.KindEgressPolicy, decision.ReasonInternalAddress)
	errDomain          = decision.Deny(decision.KindEgressPolicy, decision.ReasonDomainNotAllowed)
)

// extra ranges not covered by netip's predicates.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("255.255.255.255/32"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// Validator holds a normalized allow-list.
type Validator struct {
	allowList []string
}

// NewValidator returns a Validator for allowList. Entries are lower-cased and empty entries dropped.
func NewValidator(allowList []string) *Validator {
	out := make([]string, 0, len(allowList))
	for _, d := range allowList {
		d = normalizeHost(d)
		if d != "" {
			out = append(out, d)
		}
	}
	return &Validator{allowList: out}
}

// Validate classifies rawURL against allowList. See Validator.Validate.
func Validate(rawURL string, allowList []string) (*Decision, error) {
	return NewValidator(allowList).Validate(rawURL)
}

// Validate runs, in order: parse, scheme, internal address, allow-list. It never performs I/O.
// On denial the returned Decision carries the reason and the error is a *decision.Denial.
func (v *Validator) Validate(rawURL string) (*Decision, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return deny(&Decision{}, errMalformed)
	}
	d := &Decision{Scheme: strings.ToLower(u.Scheme), Host: normalizeHost(u.Hostname())}
	if d.Host == "" {
		return deny(d, errMalformed)
	}
	if d.Scheme != "http" && d.Scheme != "https" {
		return deny(d, errScheme)
	}
	if isInternalHost(d.Host) {
		return deny(d, errInternalAddress)
	}
	if !v.allowed(d.Host) {
		return deny(d, errDomain)
	}
	d.URL = u
	d.Verdict = VerdictAllow
	return d, nil
}

func (v *Validator) allowed(host string) bool {
	for _, d := range v.allowList {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func deny(d *Decision, err error) (*Decision, error) {
	d.Verdict = VerdictDeny
	if den, ok := decision.AsDenial(err); ok {
		d.Reason = den.Reason
	}
	return d, err
}

func normalizeHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}

// isInternalHost reports whether host names this machine or a non-public network,
// either as the localhost name or as an address in any notation.
func isInternalHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, ok := parseAddr(host)
	if !ok {
		return false
	}
	return isInternalAddr(addr)
}

func isInternalAddr(addr netip.Addr) bool {
	addr = addr.WithZone("").Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsInterfaceLocalMulticast() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	if addr.Is6() {
		// 6to4 embeds an IPv4 address in bits 16..47.
		if b := addr.As16(); b[0] == 0x20 && b[1] == 0x02 {
			return isInternalAddr(netip.AddrFrom4([4]byte{b[2], b[3], b[4], b[5]}))
		}
	}
	return false
}

// parseAddr parses host as an IP address. Besides the standard forms it accepts the
// legacy IPv4 notations resolvers still honour: 1 to 4 parts, each decimal, octal (leading 0)
// or hex (0x), with the last part filling the remaining bytes (127.1, 2130706433, 0x7f.0.0.1).
func parseAddr(host string) (netip.Addr, bool) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, true
	}
	return parseLegacyIPv4(host)
}

func parseLegacyIPv4(host string) (netip.Addr, bool) {
	parts := strings.Split(host, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return netip.Addr{}, false
	}
	vals := make([]uint64, len(parts))
	for i, p := range parts {
		n, ok := parseLegacyPart(p)
		if !ok {
			return netip.Addr{}, false
		}
		vals[i] = n
	}
	last := len(vals) - 1
	for _, n := range vals[:last] {
		if n > 0xff {
			return netip.Addr{}, false
		}
	}
	if vals[last] >= 1<<(8*uint(4-last)) {
		return netip.Addr{}, false
	}
	var ip uint32
	for i, n := range vals[:last] {
		ip |= uint32(n) << (8 * uint(3-i))
	}
	ip |= uint32(vals[last])
	return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}), true
}

func parseLegacyPart(p string) (uint64, bool) {
	if p == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(p) > 2 && (p[:2] == "0x" || p[:2] == "0X"):
		base, p = 16, p[2:]
	case len(p) > 1 && p[0] == '0':
		base, p = 8, p[1:]
	}
	n, err := strconv.ParseUint(p, base, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}
