package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse failure modes callers may want to distinguish.
var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// SignedURLSigner mints and verifies HMAC-signed download tokens. A token
// binds a job id, the stored file path and an expiry instant, so a leaked
// URL stops working once the TTL passes and cannot be redirected at
// another file.
type SignedURLSigner struct {
	key []byte
	ttl time.Duration
}

// NewSignedURLSigner returns a signer; ttl falls back to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{key: []byte(secret), ttl: ttl}
}

func (s *SignedURLSigner) sign(jobID, unixTS, encodedPath string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(jobID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(unixTS))
	mac.Write([]byte{'|'})
	mac.Write([]byte(encodedPath))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Generate mints a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("job id and file path are required")
	}
	if len(s.key) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret is not configured")
	}
	expiresAt := time.Now().Add(s.ttl)
	unixTS := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{jobID, unixTS, encodedPath, s.sign(jobID, unixTS, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse verifies a token and returns the embedded job id, file path and
// expiry. Cleanup passes allowExpired to resolve files past their TTL.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	jobID, unixTS, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(jobID, unixTS, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenSignature
	}

	seconds, err := strconv.ParseInt(unixTS, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	expiresAt = time.Unix(seconds, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	return jobID, string(rawPath), expiresAt, nil
}
