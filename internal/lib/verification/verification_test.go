package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastdo_auth/internal/models"
)

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Now()
	i := New("secret", 24*time.Hour).WithClock(func() time.Time { return now })

	token, exp, err := i.Generate("alice@example.com", models.PurposeEmailConfirmation)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour).Unix(), exp.Unix())

	email, err := i.Parse(token, models.PurposeEmailConfirmation)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestIssuer_PurposeMismatch(t *testing.T) {
	i := New("secret", time.Hour)

	token, _, err := i.Generate("alice@example.com", models.PurposePasswordReset)
	require.NoError(t, err)

	_, err = i.Parse(token, models.PurposeEmailConfirmation)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_WrongSecret(t *testing.T) {
	token, _, err := New("secret", time.Hour).Generate("alice@example.com", models.PurposePasswordReset)
	require.NoError(t, err)

	_, err = New("other", time.Hour).Parse(token, models.PurposePasswordReset)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_ExpiredKeepsEmail(t *testing.T) {
	issued := time.Now().Add(-48 * time.Hour)
	token, _, err := New("secret", 24*time.Hour).
		WithClock(func() time.Time { return issued }).
		Generate("alice@example.com", models.PurposeEmailConfirmation)
	require.NoError(t, err)

	email, err := New("secret", 24*time.Hour).Parse(token, models.PurposeEmailConfirmation)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "alice@example.com", email)
}

func TestIssuer_ExpiredWrongPurposeIsInvalid(t *testing.T) {
	issued := time.Now().Add(-48 * time.Hour)
	token, _, err := New("secret", 24*time.Hour).
		WithClock(func() time.Time { return issued }).
		Generate("alice@example.com", models.PurposePasswordReset)
	require.NoError(t, err)

	email, err := New("secret", 24*time.Hour).Parse(token, models.PurposeEmailConfirmation)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, email)
}

func TestIssuer_Garbage(t *testing.T) {
	_, err := New("secret", time.Hour).Parse("garbage", models.PurposeEmailChange)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_SameSecondTokensDiffer(t *testing.T) {
	now := time.Now()
	i := New("secret", time.Hour).WithClock(func() time.Time { return now })

	first, _, err := i.Generate("alice@example.com", models.PurposeEmailChange)
	require.NoError(t, err)
	second, _, err := i.Generate("alice@example.com", models.PurposeEmailChange)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestIssuer_ForUser(t *testing.T) {
	i := New("secret", time.Hour)

	token, _, err := i.GenerateForUser(42, "x@example.com", models.PurposeEmailChange)
	require.NoError(t, err)

	userID, email, err := i.ParseForUser(token, models.PurposeEmailChange)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "x@example.com", email)

	_, _, err = i.ParseForUser(token, models.PurposePasswordReset)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_ForUserRequiresSubject(t *testing.T) {
	i := New("secret", time.Hour)

	token, _, err := i.Generate("x@example.com", models.PurposeEmailChange)
	require.NoError(t, err)

	_, _, err = i.ParseForUser(token, models.PurposeEmailChange)
	require.ErrorIs(t, err, ErrInvalidToken)
}
