package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	parser := NewParser("secret")

	userID := uuid.New()
	municipalityID := uuid.New()
	token, expiresAt, err := issuer.Issue(userID, "op@example.com", "operator", &municipalityID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := parser.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "operator", claims.Role)
	require.NotNil(t, claims.MunicipalityID)
	assert.Equal(t, municipalityID, *claims.MunicipalityID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewIssuer("secret", time.Hour).Issue(uuid.New(), "a@example.com", "citizen", nil)
	require.NoError(t, err)

	_, err = NewParser("other").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := issuer.Issue(uuid.New(), "a@example.com", "citizen", nil)
	require.NoError(t, err)

	_, err = NewParser("secret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret!")
	require.NoError(t, err)

	assert.True(t, h.Check(hash, "s3cret!"))
	assert.False(t, h.Check(hash, "wrong"))
}
