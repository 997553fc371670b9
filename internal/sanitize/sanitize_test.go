package sanitize

import "testing"

func TestHTMLEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"<script>alert('x')</script>", "&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt;"},
		{`a & "b"`, "a &amp; &#34;b&#34;"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (HTMLEscape{}).Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFor(t *testing.T) {
	payload := "<img src=x onerror=alert(1)>"
	if got := For(false).Sanitize(payload); got != payload {
		t.Errorf("insecure Sanitize = %q, want unchanged", got)
	}
	if got := For(true).Sanitize(payload); got == payload {
		t.Error("secure Sanitize must escape markup")
	}
}
