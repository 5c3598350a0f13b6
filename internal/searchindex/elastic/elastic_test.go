package elastic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSendsDocument(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	}))
	defer server.Close()

	idx, err := New(server.URL)
	require.NoError(t, err)

	err = idx.Index(context.Background(), "text", "doc-1", map[string]any{"name": "a"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Contains(t, gotPath, "text")
	assert.Contains(t, gotPath, "doc-1")
}

func TestIndexSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	idx, err := New(server.URL)
	require.NoError(t, err)

	err = idx.Index(context.Background(), "text", "doc-1", map[string]any{"name": "a"})
	require.Error(t, err)
}

func TestRefreshCallsIndicesEndpoint(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"_shards":{"total":1,"successful":1,"failed":0}}`))
	}))
	defer server.Close()

	idx, err := New(server.URL)
	require.NoError(t, err)

	require.NoError(t, idx.Refresh(context.Background(), "text"))
	assert.Contains(t, gotPath, "_refresh")
}
