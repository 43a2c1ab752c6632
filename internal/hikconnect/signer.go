package hikconnect

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Signer produces the HMAC-SHA256 headers HikConnect expects on every request.
type Signer struct {
	AccessKey string
	SecretKey string
	Now       func() time.Time
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// StringToSign is METHOD, URI, sorted query and timestamp joined by newlines.
func StringToSign(method, uri string, params map[string]string, timestamp string) string {
	return strings.Join([]string{strings.ToUpper(method), uri, CanonicalQuery(params), timestamp}, "\n")
}

// CanonicalQuery sorts params by key and encodes values like encodeURIComponent.
func CanonicalQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+encodeURIComponent(params[k]))
	}
	return strings.Join(parts, "&")
}

// Sign returns the base64 HMAC-SHA256 of the canonical string.
func (s *Signer) Sign(method, uri string, params map[string]string, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(s.SecretKey))
	mac.Write([]byte(StringToSign(method, uri, params, timestamp)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers builds the signed header set for one request.
func (s *Signer) Headers(method, uri string, params map[string]string) map[string]string {
	ts := s.now().UTC().Format(TimestampLayout)
	return map[string]string{
		"Authorization": fmt.Sprintf("AWS4-HMAC-SHA256 Credential=%s, Signature=%s", s.AccessKey, s.Sign(method, uri, params, ts)),
		"X-Amz-Date":    ts,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

const upperhex = "0123456789ABCDEF"

func encodeURIComponent(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
