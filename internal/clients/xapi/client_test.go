package xapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mhorvat/xapiport/internal/models"
)

// newTestServer spins up a PBX stand-in that issues tokens and serves the
// given endpoint handler for everything else.
func newTestServer(t *testing.T, endpoint http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		require.Equal(t, "test-id", r.PostForm.Get("client_id"))
		require.Equal(t, "test-secret", r.PostForm.Get("client_secret"))
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   60,
		})
	})
	if endpoint != nil {
		mux.HandleFunc("/xapi/v1/", endpoint)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "test-id", "test-secret", WithRateLimit(1000))
	return srv, client
}

func TestWithRateLimitNonPositive(t *testing.T) {
	for _, rps := range []int{0, -5} {
		client := NewClient("https://pbx.example", "id", "secret", WithRateLimit(rps))
		assert.Equal(t, rate.Limit(DefaultRateLimit), client.limiter.Limit(), "rps=%d", rps)
	}

	client := NewClient("https://pbx.example", "id", "secret", WithRateLimit(3))
	assert.Equal(t, rate.Limit(3), client.limiter.Limit())
}

func TestFetchToken(t *testing.T) {
	_, client := newTestServer(t, nil)

	token, err := client.FetchToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
}

func TestFetchTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "wrong")
	_, err := client.FetchToken(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestFetchTokenMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token_type": "Bearer"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	_, err := client.FetchToken(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestInvokeCollection(t *testing.T) {
	var gotAuth, gotQuery string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"@odata.count": 2,
			"value": []map[string]any{
				{"CallId": 1, "Caller": "100"},
				{"CallId": 2, "Caller": "101"},
			},
		})
	})

	params := []models.Param{
		{Name: "$filter", Value: "date(Timestamp) ge 2024-01-01"},
		{Name: "$count", Value: "true"},
		{Name: "$top", Value: "1000"},
	}
	envelope, err := client.Invoke(context.Background(), "/xapi/v1/CallHistoryView", params)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	// Compiled parameter order survives into the query string.
	assert.Equal(t, "%24filter=date%28Timestamp%29+ge+2024-01-01&%24count=true&%24top=1000", gotQuery)

	assert.Equal(t, models.EnvelopeCollection, envelope.Kind)
	assert.Len(t, envelope.Rows, 2)
	assert.Equal(t, int64(2), envelope.TotalCount)
	assert.Empty(t, envelope.Notices)
	assert.False(t, envelope.Partial())
}

func TestInvokePartialCollectionNotice(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"@odata.count": 5000,
			"value":        []map[string]any{{"CallId": 1}},
		})
	})

	envelope, err := client.Invoke(context.Background(), "/xapi/v1/CallHistoryView", nil)
	require.NoError(t, err)

	assert.True(t, envelope.Partial())
	require.Len(t, envelope.Notices, 1)
	assert.Contains(t, envelope.Notices[0], "partially fetched (1 / 5000)")
}

func TestInvokeBooleanValue(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": true})
	})

	envelope, err := client.Invoke(context.Background(), "/xapi/v1/HasSystemOwner", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EnvelopeBoolean, envelope.Kind)
	assert.True(t, envelope.Bool)
}

func TestInvokeFlatObject(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"FQDN": "pbx.example.com", "Version": "20"})
	})

	envelope, err := client.Invoke(context.Background(), "/xapi/v1/SystemStatus", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EnvelopeObject, envelope.Kind)
	assert.Equal(t, "pbx.example.com", envelope.Object["FQDN"])
	assert.Equal(t, int64(-1), envelope.TotalCount)
}

func TestInvokeEmptyOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 204", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}},
		{"empty object", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"empty collection", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"value": []}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, tt.handler)
			_, err := client.Invoke(context.Background(), "/xapi/v1/Thing", nil)
			assert.ErrorIs(t, err, ErrEmptyResult)
		})
	}
}

func TestInvokeForbidden(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Invoke(context.Background(), "/xapi/v1/Thing", nil)

	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Contains(t, forbidden.Error(), "allow-list")
}

func TestInvokeHTTPError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Invoke(context.Background(), "/xapi/v1/Thing", nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
}

func TestInvokeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>error</html>"},
		{"value not array", `{"value": "oops"}`},
		{"row not object", `{"value": [1, 2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			_, err := client.Invoke(context.Background(), "/xapi/v1/Thing", nil)

			var malformed *MalformedResponseError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestInvokeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "id", "secret")
	_, err := client.FetchToken(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Error(t, authErr.Err)
}

func TestFetchSpec(t *testing.T) {
	const spec = `openapi: 3.0.1
info:
  title: XAPI
  version: v1
paths:
  /CallHistoryView:
    get:
      tags: [CallHistoryView]
      operationId: ListCallHistoryView
      responses:
        "200":
          description: ok
`
	mux := http.NewServeMux()
	mux.HandleFunc("/xapi/v1/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(spec))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	doc, err := client.FetchSpec(context.Background())
	require.NoError(t, err)

	item := doc.Paths.Value("/CallHistoryView")
	require.NotNil(t, item)
	require.NotNil(t, item.Get)
	assert.Equal(t, "ListCallHistoryView", item.Get.OperationID)
}

func TestFetchSpecHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := NewClient(srv.URL, "id", "secret")
	_, err := client.FetchSpec(context.Background())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}
