package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/pkg/apperror"
)

func newTestClient(url string) *Client {
	return NewClient(url, 2*time.Second, 500*time.Millisecond, zerolog.Nop())
}

func ok(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(Envelope{ErrorCode: "OK", Error: "OK", Data: raw})
}

func fail(w http.ResponseWriter, code, msg string) {
	_ = json.NewEncoder(w).Encode(Envelope{ErrorCode: code, Error: msg})
}

func TestClient_PostEnvelope(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sales/add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		id := int64(42)
		ok(w, entity.Sale{Ref: "r1", ID: &id})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.AddSale(context.Background(), &entity.Sale{Ref: "r1"})
	require.NoError(t, err)

	require.NotNil(t, result.ID)
	assert.Equal(t, int64(42), *result.ID)

	// Mutations are wrapped in a {"data": ...} body
	data, isWrapped := gotBody["data"].(map[string]any)
	require.True(t, isWrapped)
	assert.Equal(t, "r1", data["ref"])
}

func TestClient_ConnectionErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	client := newTestClient(srv.URL)
	_, err := client.AddSale(context.Background(), &entity.Sale{Ref: "r1"})

	require.Error(t, err)
	assert.True(t, apperror.IsConnection(err))
}

func TestClient_AuthRenewRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fail(w, "auth", "session expired")
			return
		}
		require.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		ok(w, []entity.Item{{ID: 1, Name: "Tea"}})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.SetToken("stale")
	var renews int
	client.SetRenewFunc(func(ctx context.Context) (string, error) {
		renews++
		return "fresh", nil
	})

	items, err := client.GetItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, renews)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_SecondAuthFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fail(w, "auth", "session expired")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.SetRenewFunc(func(ctx context.Context) (string, error) {
		return "fresh", nil
	})

	_, err := client.GetItems(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))
}

func TestClient_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fail(w, "dberr", "constraint violated")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.GetItems(context.Background())

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindServer))
	assert.Equal(t, int32(1), calls.Load())

	appErr := apperror.GetAppError(err)
	assert.Equal(t, "dberr", appErr.Code)
	assert.Equal(t, "constraint violated", appErr.Message)
}

func TestClient_HelloProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	start := time.Now()
	err := client.Hello(context.Background())

	require.Error(t, err)
	assert.True(t, apperror.IsConnection(err))
	assert.Less(t, time.Since(start), 1500*time.Millisecond, "probe must use the short timeout")
}
