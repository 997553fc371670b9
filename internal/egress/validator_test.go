package egress

import (
	"testing"

	"owasp-controls-demo/backend/internal/decision"
)

var allowList = []string{"example.com", "api.example.com"}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		reason string // empty means allow
	}{
		{"allowed domain", "http://example.com", ""},
		{"allowed https with path", "https://example.com/a?b=c", ""},
		{"subdomain", "https://www.example.com", ""},
		{"nested subdomain", "http://a.b.api.example.com:8443/x", ""},
		{"uppercase host", "HTTP://EXAMPLE.COM", ""},
		{"trailing dot", "http://example.com./", ""},
		{"suffix without boundary", "http://evilexample.com", decision.ReasonDomainNotAllowed},
		{"allow-listed as prefix", "http://example.com.evil.net", decision.ReasonDomainNotAllowed},
		{"userinfo trick", "http://example.com@evil.net/", decision.ReasonDomainNotAllowed},
		{"other domain", "http://malicious.com", decision.ReasonDomainNotAllowed},
		{"public ip", "http://93.184.216.34", decision.ReasonDomainNotAllowed},
		{"ftp", "ftp://example.com", decision.ReasonSchemeNotAllowed},
		{"file", "file:///etc/passwd", decision.ReasonMalformed},
		{"gopher", "gopher://example.com", decision.ReasonSchemeNotAllowed},
		{"no scheme", "example.com", decision.ReasonMalformed},
		{"empty", "", decision.ReasonMalformed},
		{"bad escape", "http://%zz", decision.ReasonMalformed},
		{"port only", "http://:80", decision.ReasonMalformed},
		{"loopback", "http://127.0.0.1:5000", decision.ReasonInternalAddress},
		{"loopback range", "http://127.8.9.10", decision.ReasonInternalAddress},
		{"localhost", "http://localhost:5000", decision.ReasonInternalAddress},
		{"localhost uppercase", "http://LOCALHOST", decision.ReasonInternalAddress},
		{"localhost subdomain", "http://api.localhost", decision.ReasonInternalAddress},
		{"ipv6 loopback", "http://[::1]:8080/", decision.ReasonInternalAddress},
		{"ipv4-mapped ipv6", "http://[::ffff:127.0.0.1]/", decision.ReasonInternalAddress},
		{"ipv4-mapped private hex", "http://[::ffff:a00:1]/", decision.ReasonInternalAddress},
		{"rfc1918 10", "http://10.1.2.3", decision.ReasonInternalAddress},
		{"rfc1918 172", "http://172.16.0.1", decision.ReasonInternalAddress},
		{"rfc1918 172 upper", "http://172.31.255.255", decision.ReasonInternalAddress},
		{"172 outside range", "http://172.32.0.1", decision.ReasonDomainNotAllowed},
		{"rfc1918 192", "http://192.168.1.1", decision.ReasonInternalAddress},
		{"link local metadata", "http://169.254.169.254/latest/meta-data", decision.ReasonInternalAddress},
		{"unspecified", "http://0.0.0.0", decision.ReasonInternalAddress},
		{"this network", "http://0.1.2.3", decision.ReasonInternalAddress},
		{"cgnat", "http://100.64.0.1", decision.ReasonInternalAddress},
		{"ipv6 unique local", "http://[fd00::1]", decision.ReasonInternalAddress},
		{"ipv6 link local zone", "http://[fe80::1%25eth0]", decision.ReasonInternalAddress},
		{"ipv6 unspecified", "http://[::]", decision.ReasonInternalAddress},
		{"6to4 loopback", "http://[2002:7f00:1::]", decision.ReasonInternalAddress},
		{"decimal integer", "http://2130706433", decision.ReasonInternalAddress},
		{"hex integer", "http://0x7f000001", decision.ReasonInternalAddress},
		{"octal dotted", "http://0177.0.0.1", decision.ReasonInternalAddress},
		{"hex dotted", "http://0x7f.0x0.0x0.0x1", decision.ReasonInternalAddress},
		{"short form", "http://127.1", decision.ReasonInternalAddress},
		{"short form private", "http://10.1", decision.ReasonInternalAddress},
		{"three part", "http://192.168.257", decision.ReasonInternalAddress},
		{"octal private", "http://012.0.0.1", decision.ReasonInternalAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Validate(tt.url, allowList)
			if d == nil {
				t.Fatal("Validate returned nil decision")
			}
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("Validate(%q): %v, want allow", tt.url, err)
				}
				if !d.Allowed() || d.URL == nil {
					t.Fatalf("decision = %+v, want allow with URL", d)
				}
				return
			}
			den, ok := decision.AsDenial(err)
			if !ok {
				t.Fatalf("Validate(%q) = %v, want denial %q", tt.url, err, tt.reason)
			}
			if den.Kind != decision.KindEgressPolicy || den.Reason != tt.reason {
				t.Fatalf("Validate(%q) = %+v, want %q", tt.url, *den, tt.reason)
			}
			if d.Allowed() || d.Reason != tt.reason || d.URL != nil {
				t.Fatalf("decision = %+v, want deny %q", d, tt.reason)
			}
		})
	}
}

func TestValidate_EmptyAllowList(t *testing.T) {
	if _, err := Validate("http://example.com", nil); !decision.IsKind(err, decision.KindEgressPolicy) {
		t.Fatalf("empty allow-list must deny, got %v", err)
	}
}

func TestNewValidator_NormalizesAllowList(t *testing.T) {
	v := NewValidator([]string{" Example.COM. ", "", "  "})
	if len(v.allowList) != 1 || v.allowList[0] != "example.com" {
		t.Fatalf("allowList = %v, want [example.com]", v.allowList)
	}
	if _, err := v.Validate("https://sub.example.com"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecision_Fields(t *testing.T) {
	d, err := Validate("https://Api.Example.com:443/path", allowList)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Scheme != "https" || d.Host != "api.example.com" || d.Verdict != VerdictAllow {
		t.Errorf("decision = %+v", d)
	}
}

func TestParseLegacyIPv4(t *testing.T) {
	tests := []struct {
		in   string
		want string // empty means not an address
	}{
		{"127.0.0.1", "127.0.0.1"},
		{"127.1", "127.0.0.1"},
		{"127.0.1", "127.0.0.1"},
		{"2130706433", "127.0.0.1"},
		{"0x7f000001", "127.0.0.1"},
		{"0X7F.1", "127.0.0.1"},
		{"017700000001", "127.0.0.1"},
		{"1.2.3.4.5", ""},
		{"256.1.1.1", ""},
		{"1.2.65536", ""},
		{"4294967296", ""},
		{"08.1.1.1", ""},
		{"0x", ""},
		{"1..1", ""},
		{"example.com", ""},
		{"1_0.0.0.1", ""},
		{"-1.0.0.1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, ok := parseLegacyIPv4(tt.in)
			if tt.want == "" {
				if ok {
					t.Fatalf("parseLegacyIPv4(%q) = %v, want not an address", tt.in, addr)
				}
				return
			}
			if !ok || addr.String() != tt.want {
				t.Fatalf("parseLegacyIPv4(%q) = %v, %v; want %s", tt.in, addr, ok, tt.want)
			}
		})
	}
}
