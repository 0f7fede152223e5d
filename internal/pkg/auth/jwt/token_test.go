package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken(&Payload{SessionID: "s-1", DisplayName: "Asha"}, testSecret, time.Minute)
	require.NoError(t, err)

	payload, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "s-1", payload.SessionID)
	require.Equal(t, "Asha", payload.DisplayName)
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := GenerateToken(&Payload{SessionID: "s-1"}, testSecret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	require.Error(t, err)

	expired, err := GenerateToken(&Payload{SessionID: "s-1"}, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	require.Error(t, err)

	noSession, err := GenerateToken(&Payload{}, testSecret, time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(noSession, testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	token, err := GenerateToken(&Payload{SessionID: "s-9"}, testSecret, time.Minute)
	require.NoError(t, err)

	var got *Payload
	h := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPayloadFromContext(r)
	}))

	// Given a token in the query string
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.NotNil(t, got)
	require.Equal(t, "s-9", got.SessionID)

	// Given a bearer header
	got = nil
	r := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.NotNil(t, got)

	// Given a garbage token, the request stays anonymous
	got = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil))
	require.Nil(t, got)
}

func TestIssueSession(t *testing.T) {
	req := require.New(t)

	token, expiresAt, err := IssueSession("s-2", "Ben", testSecret)
	req.NoError(err)
	req.WithinDuration(time.Now().Add(SessionExpiration), expiresAt, 5*time.Second)

	payload, err := ParseToken(token, testSecret)
	req.NoError(err)
	req.Equal("s-2", payload.SessionID)
	req.Equal("Ben", payload.DisplayName)
	req.Equal(TokenIssuer, payload.Issuer)
}
