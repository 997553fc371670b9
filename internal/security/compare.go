package security

import "crypto/subtle"

// ConstantTimeEqual reports whether supplied equals expected. The work done
// depends only on len(expected): supplied is copied into a buffer of that length
// before comparison, so neither the position of the first difference nor a
// length mismatch short-circuits.
func ConstantTimeEqual(expected, supplied []byte) bool {
	buf := make([]byte, len(expected))
	copy(buf, supplied)
	sameLen := subtle.ConstantTimeEq(int32(len(expected)), int32(len(supplied)))
	sameBytes := subtle.ConstantTimeCompare(expected, buf)
	return sameLen&sameBytes == 1
}
