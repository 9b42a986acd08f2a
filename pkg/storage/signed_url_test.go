package storage

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expiredToken(t *testing.T, signer *SignedURLSigner, jobID, relPath string) string {
	t.Helper()
	unixTS := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	return strings.Join([]string{jobID, unixTS, encodedPath, signer.sign(jobID, unixTS, encodedPath)}, ".")
}

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "2026/timetable_term-1.csv")
	require.NoError(t, err)

	jobID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "2026/timetable_term-1.csv", relPath)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "a.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[2] = base64.RawURLEncoding.EncodeToString([]byte("b.csv"))
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestSignedURLRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	_, _, _, err := signer.Parse("not-a-token", false)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token := expiredToken(t, signer, "job-1", "a.csv")

	_, _, _, err := signer.Parse(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	jobID, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "a.csv", relPath)
}

func TestSignedURLRequiresSecret(t *testing.T) {
	signer := NewSignedURLSigner("", time.Hour)
	_, _, err := signer.Generate("job-1", "a.csv")
	assert.Error(t, err)
}
