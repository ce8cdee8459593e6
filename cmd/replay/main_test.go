package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_Success(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"received":2,"detected":1,"processed":1}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	body := []byte(`[{"signature":"a"},{"signature":"b"}]`)
	err := replay(context.Background(), srv.Client(), srv.URL+"/webhooks/helius", "secret", body, &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, string(body), gotBody)
	assert.Contains(t, out.String(), "Transactions: 2")
	assert.Contains(t, out.String(), "Response status: 200")
	assert.Contains(t, out.String(), `"processed": 1`)
	assert.Contains(t, out.String(), "Replay successful")
}

func TestReplay_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := replay(context.Background(), srv.Client(), srv.URL, "wrong", []byte(`{}`), &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Response status: 401")
	assert.NotContains(t, out.String(), "Replay successful")
}

func TestReplay_InvalidFixture(t *testing.T) {
	err := replay(context.Background(), http.DefaultClient, "http://127.0.0.1:0", "s", []byte("not json"), io.Discard)
	assert.Error(t, err)
}

func TestCountTransactions(t *testing.T) {
	assert.Equal(t, 3, countTransactions([]byte(`[1,2,3]`)))
	assert.Equal(t, 1, countTransactions([]byte(`{"signature":"x"}`)))
}
