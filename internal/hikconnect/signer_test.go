package hikconnect_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/jerichox/jerichox-security/internal/hikconnect"
	"github.com/stretchr/testify/assert"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
}

func TestCanonicalQuery(t *testing.T) {
	assert.Equal(t, "", hikconnect.CanonicalQuery(nil))
	assert.Equal(t,
		"a=1&b=x%20y&c=%2F%3F!*'()~",
		hikconnect.CanonicalQuery(map[string]string{"c": "/?!*'()~", "a": "1", "b": "x y"}),
	)
}

func TestStringToSign(t *testing.T) {
	got := hikconnect.StringToSign("get", "/v1/devices", map[string]string{"page": "2"}, "2025-03-04T05:06:07.890Z")
	assert.Equal(t, "GET\n/v1/devices\npage=2\n2025-03-04T05:06:07.890Z", got)
}

func TestSignerHeaders(t *testing.T) {
	s := &hikconnect.Signer{AccessKey: "AK123", SecretKey: "SK456", Now: fixedClock}

	h := s.Headers("GET", "/v1/devices", nil)

	mac := hmac.New(sha256.New, []byte("SK456"))
	mac.Write([]byte("GET\n/v1/devices\n\n2025-03-04T05:06:07.890Z"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, "2025-03-04T05:06:07.890Z", h["X-Amz-Date"])
	assert.Equal(t, "AWS4-HMAC-SHA256 Credential=AK123, Signature="+want, h["Authorization"])
	assert.Equal(t, "application/json", h["Content-Type"])
	assert.Equal(t, "application/json", h["Accept"])
}

func TestSignerTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	s := &hikconnect.Signer{AccessKey: "a", SecretKey: "b", Now: func() time.Time {
		return time.Date(2025, 1, 1, 8, 0, 0, 0, loc)
	}}
	assert.Equal(t, "2025-01-01T00:00:00.000Z", s.Headers("GET", "/", nil)["X-Amz-Date"])
}

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, "https://api-eu.hik-connect.com", hikconnect.ResolveBaseURL("eu"))
	assert.Equal(t, "https://api-us.hik-connect.com", hikconnect.ResolveBaseURL("us"))
	assert.Equal(t, "https://api-asia.hik-connect.com", hikconnect.ResolveBaseURL("asia"))
	assert.Equal(t, "https://api.hik-connect.com", hikconnect.ResolveBaseURL("global"))
	assert.Equal(t, "https://api.hik-connect.com", hikconnect.ResolveBaseURL("mars"))

	assert.True(t, hikconnect.ValidRegion("asia"))
	assert.False(t, hikconnect.ValidRegion("mars"))
}
