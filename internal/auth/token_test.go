package auth

import (
	"testing"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFakeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })
	return clock
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	withFakeClock(t)
	a := NewAuthority("secret", 0)

	token, err := a.Issue("user_abc")
	require.NoError(t, err)

	userID, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user_abc", userID)
}

func TestIssue_ClaimsShape(t *testing.T) {
	withFakeClock(t)
	a := NewAuthority("secret", 0)

	token, err := a.Issue("user_abc")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)

	assert.Equal(t, "HS256", parsed.Method.Alg())
	assert.Equal(t, "user_abc", claims["user_id"])
	iat, _ := claims.GetIssuedAt()
	exp, _ := claims.GetExpirationTime()
	assert.Equal(t, 365*24*time.Hour, exp.Sub(iat.Time))
}

func TestVerify_Expired(t *testing.T) {
	clock := withFakeClock(t)
	a := NewAuthority("secret", time.Hour)

	token, err := a.Issue("user_abc")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Rejects(t *testing.T) {
	withFakeClock(t)
	a := NewAuthority("secret", 0)

	otherKey, err := NewAuthority("other", 0).Issue("user_abc")
	require.NoError(t, err)

	noUser, err := a.Issue("")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong key", otherKey},
		{"missing user id", noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	withFakeClock(t)
	a := NewAuthority("secret", 0)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user_abc",
		"exp":     domain.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
