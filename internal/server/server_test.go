package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/referolabs/refero/internal/app"
	"github.com/referolabs/refero/internal/common"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir()
	config.Auth.SecretKey = "server-test-secret"
	config.Logging.Level = "error"
	config.Retention.Enabled = false

	application, err := app.New(config)
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	return New(application)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAnonymousRequestReceivesSessionID(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/get_report", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(SessionHeader))
}

func TestProvidedSessionIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{}
	header.Set(SessionHeader, "session-abc")
	rec := doRequest(t, srv, http.MethodGet, "/api/get_report", nil, header)

	assert.Equal(t, "session-abc", rec.Header().Get(SessionHeader))
}

func TestRegisterTokenAndBearerFlow(t *testing.T) {
	srv := newTestServer(t)

	creds := map[string]string{"username": "ada", "password": "hunter2"}

	// Registration signs the account in immediately
	rec := doRequest(t, srv, http.MethodPost, "/api/register", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, "bearer", registered.TokenType)

	rec = doRequest(t, srv, http.MethodPost, "/api/token", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token.AccessToken)
	rec = doRequest(t, srv, http.MethodGet, "/api/get_report", nil, header)

	// Authenticated but without a report yet: the token was accepted,
	// the lookup just found nothing.
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get(SessionHeader))
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	srv := newTestServer(t)

	creds := map[string]string{"username": "grace", "password": "hopper"}

	rec := doRequest(t, srv, http.MethodPost, "/api/register", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/register", creds, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer not-a-real-token")
	rec := doRequest(t, srv, http.MethodGet, "/api/get_report", nil, header)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodOptions, "/api/generate_report", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), SessionHeader)
}

func TestWrongMethodRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/register", nil, nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGenerateRejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/generate_report", map[string]interface{}{
		"theme":    "",
		"sections": []interface{}{},
		"links":    []interface{}{},
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGenerateWithoutProviderKeyFailsAsync(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{}
	header.Set(SessionHeader, "session-nokey")

	rec := doRequest(t, srv, http.MethodPost, "/api/generate_report", map[string]interface{}{
		"theme":    "tidal energy",
		"sections": []map[string]interface{}{{"title": "overview"}},
		"links":    []string{"https://example.com/tidal"},
	}, header)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// No provider key is configured, so the background run must end in
	// a failed job rather than a hung one.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doRequest(t, srv, http.MethodGet, "/api/check_result", nil, header)
		require.Equal(t, http.StatusOK, rec.Code)

		var job struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

		if job.Status == "failed" {
			assert.NotEmpty(t, job.Error)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("generation job never failed, last status %q", job.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestDeleteReportIsIdempotent(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{}
	header.Set(SessionHeader, "session-del")

	for i := 0; i < 2; i++ {
		rec := doRequest(t, srv, http.MethodDelete, "/api/delete_report", nil, header)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestCheckResultOnFreshIdentity(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{}
	header.Set(SessionHeader, "session-fresh")

	rec := doRequest(t, srv, http.MethodGet, "/api/check_result", nil, header)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Result bool `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Result)
}
