package epay

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// =====================================================
// EPAY SIGNATURE
// =====================================================

const (
	SignKey     = "sign"
	SignTypeKey = "sign_type"
	SignTypeMD5 = "MD5"
)

// CanonicalString builds the digest input for params.
//
// Gateway algorithm (must match byte for byte):
// 1. Drop sign and sign_type
// 2. Sort keys ascending
// 3. Encode as a query string, then decode the whole string back
// 4. Strip backslash escapes
// 5. Append the shared secret as-is
//
// Empty values stay in the string as "key=".
func CanonicalString(params *Params, secret string) string {
	filtered := params.Clone()
	filtered.Del(SignKey)
	filtered.Del(SignTypeKey)

	encoded := filtered.Sorted().Encode()
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		// unreachable: Encode only emits well-formed escapes
		decoded = encoded
	}

	return stripSlashes(decoded) + secret
}

// Sign returns the lowercase hex MD5 of the canonical string.
func Sign(params *Params, secret string) string {
	sum := md5.Sum([]byte(CanonicalString(params, secret)))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest and compares it with the sign parameter.
// Comparison is case-sensitive. A missing sign never verifies.
func Verify(params *Params, secret string) bool {
	received, ok := params.Get(SignKey)
	if !ok {
		return false
	}
	expected := Sign(params, secret)
	return subtle.ConstantTimeCompare([]byte(received), []byte(expected)) == 1
}

// SignParams returns a copy of params in signing order with sign and
// sign_type appended.
func SignParams(params *Params, secret string) *Params {
	signed := params.Clone()
	signed.Del(SignKey)
	signed.Del(SignTypeKey)
	signed = signed.Sorted()

	signed.Set(SignKey, Sign(signed, secret))
	signed.Set(SignTypeKey, SignTypeMD5)
	return signed
}

// phpURLEncode encodes like PHP's urlencode().
// Go's QueryEscape already turns spaces into '+' but leaves '~' alone.
func phpURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}

// stripSlashes mirrors PHP's stripslashes(): "\x" becomes "x", "\0" becomes
// a NUL byte and a trailing lone backslash is dropped.
func stripSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		if s[i] == '0' {
			b.WriteByte(0)
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
