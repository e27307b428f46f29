package correlation

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const sigLen = 16

// Codec signs and verifies correlation keys.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode returns the signed token for k.
func (c *Codec) Encode(k Key) (string, error) {
	if k.Cycle == "" {
		k.Cycle = Monthly
	}
	if err := k.validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(k)
	if err != nil {
		return "", errors.Join(ErrInvalidKey, err)
	}
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(c.sign(data)), nil
}

// Decode accepts a signed token, or the legacy delimited form when raw
// contains "|".
func (c *Codec) Decode(raw string) (Key, error) {
	if strings.Contains(raw, delimiter) {
		return Decode(raw)
	}

	payload, sig, ok := strings.Cut(raw, ".")
	if !ok || payload == "" || sig == "" {
		return Key{}, ErrInvalidKey
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Key{}, errors.Join(ErrInvalidKey, err)
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Key{}, errors.Join(ErrInvalidKey, err)
	}
	if subtle.ConstantTimeCompare(gotSig, c.sign(data)) != 1 {
		return Key{}, ErrInvalidSignature
	}

	var k Key
	if err := json.Unmarshal(data, &k); err != nil {
		return Key{}, errors.Join(ErrInvalidKey, err)
	}
	if k.Cycle == "" {
		k.Cycle = Monthly
	}
	if err := k.validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

func (c *Codec) sign(data []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(data)
	return h.Sum(nil)[:sigLen]
}
