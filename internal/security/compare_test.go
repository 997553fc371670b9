package security

import "testing"

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name               string
		expected, supplied string
		want               bool
	}{
		{"equal", "abcdef", "abcdef", true},
		{"first byte differs", "abcdef", "xbcdef", false},
		{"last byte differs", "abcdef", "abcdex", false},
		{"supplied shorter", "abcdef", "abc", false},
		{"supplied prefix padded with zero", "abc\x00", "abc", false},
		{"supplied longer", "abc", "abcdef", false},
		{"supplied empty", "abc", "", false},
		{"both empty", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConstantTimeEqual([]byte(tc.expected), []byte(tc.supplied)); got != tc.want {
				t.Errorf("ConstantTimeEqual(%q, %q) = %v, want %v", tc.expected, tc.supplied, got, tc.want)
			}
		})
	}
}
