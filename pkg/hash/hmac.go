package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
)

// ComputeHmac256 computes HMAC-SHA256 over the concatenation of chunks and
// encodes the digest with enc
func ComputeHmac256(secret []byte, enc *base64.Encoding, chunks ...[]byte) (string, error) {
	h := hmac.New(sha256.New, secret)
	for _, chunk := range chunks {
		if _, err := h.Write(chunk); err != nil {
			return "", errors.Wrap(err, "hmac.Write")
		}
	}

	return enc.EncodeToString(h.Sum(nil)), nil
}

// Equal compares two encoded MACs in constant time
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
