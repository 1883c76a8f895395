package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// URL purposes. Signatures are bound to a purpose so an upload token cannot
// be replayed as a read token.
const (
	PurposeUpload = "upload"
	PurposeServe  = "serve"
)

// Signer mints and verifies expiring HMAC-signed image URLs, replacing the
// managed platform's generateUploadUrl with URLs served by this API.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// NewSigner creates a URL signer.
func NewSigner(secret, baseURL string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), baseURL: baseURL, ttl: ttl}
}

// UploadURL mints a fresh image id and a signed PUT URL for it.
func (s *Signer) UploadURL() (url, imageID string) {
	imageID = uuid.Must(uuid.NewV7()).String()
	exp := time.Now().Add(s.ttl).Unix()
	sig := s.sign(PurposeUpload, imageID, exp)
	return fmt.Sprintf("%s/uploads/%s?exp=%d&sig=%s", s.baseURL, imageID, exp, sig), imageID
}

// ServeURL returns a signed GET URL for an existing image id.
func (s *Signer) ServeURL(imageID string) string {
	exp := time.Now().Add(s.ttl).Unix()
	sig := s.sign(PurposeServe, imageID, exp)
	return fmt.Sprintf("%s/images/%s?exp=%d&sig=%s", s.baseURL, imageID, exp, sig)
}

// Verify checks a signature for the given purpose and image id. Expired or
// forged signatures fail.
func (s *Signer) Verify(purpose, imageID, expStr, sig string) bool {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().Unix() > exp {
		return false
	}
	expected := s.sign(purpose, imageID, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(purpose, imageID string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%s:%d", purpose, imageID, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
