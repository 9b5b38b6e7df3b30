package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewAuthenticatorRejectsWeakSecret(t *testing.T) {
	_, err := NewAuthenticator("short", nil)
	assert.ErrorIs(t, err, ErrWeakSecretKey)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	a, err := NewAuthenticator(testSecret, nil)
	require.NoError(t, err)

	want := Principal{UserID: uuid.New(), Role: RoleTeamLead, Name: "Anna"}
	token, err := SignToken(want, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	got, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	a, err := NewAuthenticator(testSecret, nil)
	require.NoError(t, err)

	expired, err := SignToken(Principal{UserID: uuid.New(), Role: RoleAdmin}, []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	otherKey, err := SignToken(Principal{UserID: uuid.New(), Role: RoleAdmin}, []byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	require.NoError(t, err)
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: uuid.NewString(),
		Role:   "root",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"expired":   expired,
		"other key": otherKey,
		"bad role":  badRole,
	} {
		_, err := a.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthorized, name)
	}
}

func TestPrincipalPermissions(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	member := Principal{UserID: self, Role: RoleTeamMember}
	assert.False(t, member.CanAssign())
	assert.True(t, member.CanActFor(self))
	assert.False(t, member.CanActFor(other))
	assert.False(t, member.SeesAll())

	lead := Principal{UserID: self, Role: RoleTeamLead}
	assert.True(t, lead.CanAssign())
	assert.True(t, lead.CanActFor(other))

	dataEntry := Principal{UserID: self, Role: RoleDataEntry}
	assert.False(t, dataEntry.CanActFor(self))
	assert.True(t, dataEntry.CanEditRegistry())
	assert.False(t, member.CanEditRegistry())
}

func TestMiddleware(t *testing.T) {
	a, err := NewAuthenticator(testSecret, nil)
	require.NoError(t, err)

	userID := uuid.New()
	var seen Principal
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := SignToken(Principal{UserID: userID, Role: RoleTeamMember}, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, seen.UserID)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = ExtractBearerToken("Basic abc")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = ExtractBearerToken("Bearer   ")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
