package flash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"zocheckout.com/app/pkg/view"
)

var ErrInvalid = errors.New("invalid flash cookie")

// Flash mesajları redirect sonrası tek bir istekte okunur.
const maxAge = 2 * time.Minute

type Codec struct {
	Secret     []byte
	CookieName string
	Secure     bool
}

func NewCodec(secret []byte, cookieName string, secure bool) *Codec {
	return &Codec{Secret: secret, CookieName: cookieName, Secure: secure}
}

// value format: base64(json).base64(hmac)
func (c *Codec) Encode(f view.Flash) (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(b)
	return payload + "." + c.sign(payload), nil
}

func (c *Codec) Decode(v string) (*view.Flash, error) {
	payload, sig, ok := strings.Cut(v, ".")
	if !ok || !hmac.Equal([]byte(c.sign(payload)), []byte(sig)) {
		return nil, ErrInvalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalid
	}
	var f view.Flash
	if err := json.Unmarshal(raw, &f); err != nil || strings.TrimSpace(f.Message) == "" {
		return nil, ErrInvalid
	}
	return &f, nil
}

func (c *Codec) CookieMaxAge() int {
	return int(maxAge.Seconds())
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.Secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
