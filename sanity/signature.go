// Package sanity verifies webhook signatures issued by the Sanity CMS.
package sanity

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/quantonganh/newsroom"
	"github.com/quantonganh/newsroom/pkg/hash"
)

// SignatureHeader is the header Sanity puts the signature in
const SignatureHeader = "sanity-webhook-signature"

type verifier struct {
	secret string
}

// NewVerifier returns a verifier for signatures made with secret
func NewVerifier(secret string) newsroom.SignatureVerifier {
	return &verifier{
		secret: strings.TrimSpace(secret),
	}
}

// Verify checks a header of the form "t=<millis>,v1=<base64url mac>" against
// the raw body as received.
func (v *verifier) Verify(body []byte, signature string) bool {
	if v.secret == "" {
		return false
	}

	timestamp, got, ok := parseHeader(signature)
	if !ok {
		return false
	}

	expected, err := mac256(body, v.secret, timestamp)
	if err != nil {
		return false
	}

	return hash.Equal(got, expected)
}

// Sign returns the header value Sanity would send for body at t
func Sign(body []byte, secret string, t time.Time) (string, error) {
	timestamp := strconv.FormatInt(t.UnixMilli(), 10)
	mac, err := mac256(body, secret, timestamp)
	if err != nil {
		return "", err
	}

	return "t=" + timestamp + ",v1=" + mac, nil
}

// mac256 signs "<timestamp>.<body>" the way Sanity does
func mac256(body []byte, secret, timestamp string) (string, error) {
	return hash.ComputeHmac256([]byte(secret), base64.RawURLEncoding, []byte(timestamp), []byte("."), body)
}

func parseHeader(header string) (timestamp, mac string, ok bool) {
	for _, part := range strings.Split(strings.TrimSpace(header), ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			mac = value
		}
	}

	if timestamp == "" || mac == "" {
		return "", "", false
	}
	if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
		return "", "", false
	}

	return timestamp, mac, true
}
