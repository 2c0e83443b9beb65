package adminauth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capturedeck/capturedeck/internal/signing"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

const testSecret = "0123456789012345678901234567890X"

func newTestService(t *testing.T, clk clock.Clock) *Service {
	t.Helper()
	signer, err := signing.NewSigner(testSecret)
	require.NoError(t, err)
	return NewService("correct", signer, clk, 24*time.Hour)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, clock.NewFake(time.Now()))

	_, err := svc.Login("wrong")
	assert.ErrorIs(t, err, ErrBadPassword)

	// A prefix of the real password must not pass either.
	_, err = svc.Login("correc")
	assert.ErrorIs(t, err, ErrBadPassword)
}

func TestLoginAndVerify(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, clk)

	token, err := svc.Login("correct")
	require.NoError(t, err)

	sess, err := svc.VerifySession(token)
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin)
	assert.Equal(t, clk.Current, sess.CreatedAt)
}

func TestVerifyExpiredSession(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, clk)

	token, err := svc.Login("correct")
	require.NoError(t, err)

	// Exactly at the TTL boundary is still valid.
	clk.Advance(24 * time.Hour)
	_, err = svc.VerifySession(token)
	assert.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = svc.VerifySession(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestVerifyTamperedToken(t *testing.T) {
	clk := clock.NewFake(time.Now())
	svc := newTestService(t, clk)

	token, err := svc.Login("correct")
	require.NoError(t, err)

	dot := strings.Index(token, ".")

	for _, i := range []int{0, dot + 1} {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		_, err := svc.VerifySession(string(b))
		assert.ErrorIs(t, err, ErrInvalidSession)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	svc := newTestService(t, clock.NewFake(time.Now()))

	for _, token := range []string{"", "garbage", "a.b", "a.b.c"} {
		_, err := svc.VerifySession(token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	}
}
