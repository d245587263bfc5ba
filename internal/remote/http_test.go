package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyline-sync/config"
	"supplyline-sync/internal/model"
)

func newTestClient(t *testing.T, url string, token string) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(&config.RemoteConfig{
		BaseURL:        url + "/api",
		Timeout:        2 * time.Second,
		RequestsPerSec: 1000,
		Burst:          10,
	}, TokenFunc(func() string { return token }))
	require.NoError(t, err)
	return c
}

func TestHTTPClient_ListTools(t *testing.T) {
	var gotAuth, gotRequestID, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":1,"tool_number":"HT001","serial_number":"SN1","status":"Available"}]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "abc")
	tools, err := c.ListTools(context.Background())

	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "HT001", tools[0].ToolNumber)
	assert.Equal(t, model.ToolAvailable, tools[0].Status)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "/api/tools", gotPath)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "request id should be a uuid")
}

func TestHTTPClient_NoTokenNoHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	users, err := newTestClient(t, srv.URL, "").ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
	assert.False(t, hasAuth)
}

func TestHTTPClient_PathEscaping(t *testing.T) {
	var gotRawPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRawPath = r.URL.EscapedPath()
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, "")

	_, err := c.ListToolsByStatus(context.Background(), model.ToolCheckedOut)
	require.NoError(t, err)
	assert.Equal(t, "/api/tools/status/Checked%20Out", gotRawPath)

	_, err = c.SearchChemicals(context.Background(), " MEK ")
	require.NoError(t, err)
	assert.Equal(t, "/api/chemicals/search", gotRawPath)
	assert.Equal(t, "MEK", gotQuery)
}

func TestHTTPClient_CreateCheckout(t *testing.T) {
	var got CheckoutRequest
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id":44,"tool_id":3,"user_id":9,"checked_out_by":"John Doe","is_active":true}`)
	}))
	defer srv.Close()

	due := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	checkout, err := newTestClient(t, srv.URL, "t").CreateCheckout(context.Background(), CheckoutRequest{
		ToolID: 3, UserID: 9, ExpectedReturnDate: due,
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, int64(3), got.ToolID)
	assert.True(t, got.ExpectedReturnDate.Equal(due))
	assert.Equal(t, int64(44), checkout.ID)
	assert.True(t, checkout.IsActive)
}

func TestHTTPClient_StatusClassification(t *testing.T) {
	testCases := []struct {
		status        int
		body          string
		expectKind    Kind
		expectMessage string
		retryable     bool
	}{
		{http.StatusUnauthorized, `{"error":"token expired"}`, KindAuthentication, "Authentication failed", false},
		{http.StatusForbidden, ``, KindAuthorization, "Access denied", false},
		{http.StatusNotFound, `not here`, KindClient, "Not Found", false},
		{http.StatusUnprocessableEntity, `bad`, KindClient, "Unprocessable Entity", false},
		{http.StatusInternalServerError, `boom`, KindServer, "Server error occurred", true},
		{http.StatusServiceUnavailable, ``, KindServer, "Server error occurred", true},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, "").GetTool(context.Background(), 1)

			var re *Error
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tc.expectKind, re.Kind)
			assert.Equal(t, tc.status, re.StatusCode)
			assert.Equal(t, tc.expectMessage, re.Message)
			assert.Equal(t, tc.body, re.Body)
			assert.Equal(t, tc.retryable, re.Retryable())
			assert.NotEmpty(t, re.UserMessage())
		})
	}
}

func TestHTTPClient_EmptyBody(t *testing.T) {
	for _, body := range []string{"", "null", "  \n"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))

		_, err := newTestClient(t, srv.URL, "").GetChemical(context.Background(), 1)
		srv.Close()

		var re *Error
		require.True(t, errors.As(err, &re), "body %q", body)
		assert.Equal(t, KindUnknown, re.Kind)
		assert.Equal(t, "response body is empty", re.Message)
		assert.False(t, re.Retryable())
	}
}

func TestHTTPClient_DeleteIgnoresBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(t, srv.URL, "").DeleteTool(context.Background(), 5))
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewHTTPClient(&config.RemoteConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = c.ListChemicals(context.Background())

	re := Classify(err)
	require.NotNil(t, re)
	assert.Equal(t, KindConnectivity, re.Kind)
	assert.Equal(t, "Request timed out", re.Message)
	assert.True(t, re.Retryable())
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, "").ListIssuances(context.Background())

	assert.True(t, IsKind(err, KindConnectivity), "got %v", err)
}

func TestNewHTTPClient_InvalidBaseURL(t *testing.T) {
	_, err := NewHTTPClient(&config.RemoteConfig{BaseURL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		expectKind Kind
		expectMsg  string
	}{
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), KindConnectivity, "Request timed out"},
		{"dns", &net.DNSError{Err: "no such host", Name: "supplyline.local", IsNotFound: true}, KindConnectivity, "No internet connection"},
		{"op error", &net.OpError{Op: "read", Err: errors.New("broken pipe")}, KindConnectivity, "Network connection error"},
		{"already classified", &Error{Kind: KindServer, Message: "x"}, KindServer, "x"},
		{"other", errors.New("weird"), KindUnknown, "Unknown error occurred"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			re := Classify(tc.err)
			require.NotNil(t, re)
			assert.Equal(t, tc.expectKind, re.Kind)
			assert.Equal(t, tc.expectMsg, re.Message)
		})
	}

	assert.Nil(t, Classify(nil))
}
