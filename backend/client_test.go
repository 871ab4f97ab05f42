package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynkup/aitas/types"
)

func TestListWorkflows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/workflows/list", r.URL.Path)
		assert.Equal(t, "co-1", r.URL.Query().Get("companyId"))
		json.NewEncoder(w).Encode([]WorkflowSummary{
			{ID: "w1", Name: "Filter Change", Description: "Replace the filter"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "co-1", 5*time.Second, nil)
	got, err := c.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "w1", got[0].ID)
	assert.Equal(t, "Filter Change", got[0].Name)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, "co-1", 5*time.Second, nil)
	_, err := c.GetWorkflow(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestDiagnose_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/diagnoseV2", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, `{"sp":0.42}`, body["fp_data_object"])
		json.NewEncoder(w).Encode(map[string]string{"diagnosis": "static pressure nominal"})
	}))
	defer srv.Close()

	c := New(srv.URL, "co-1", 5*time.Second, nil)
	got, err := c.Diagnose(context.Background(), `{"sp":0.42}`)
	require.NoError(t, err)
	assert.Equal(t, "static pressure nominal", got)
}

func TestDiagnose_ErrorCategories(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		c := New("", "co-1", time.Second, nil)
		_, err := c.Diagnose(context.Background(), "{}")
		assert.Equal(t, types.ErrConfigMissing, types.GetErrorCode(err))
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(srv.URL, "co-1", time.Second, nil)
		_, err := c.Diagnose(context.Background(), "{}")
		assert.Equal(t, types.ErrUpstreamStatus, types.GetErrorCode(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		c := New("http://127.0.0.1:1", "co-1", 500*time.Millisecond, nil)
		_, err := c.Diagnose(context.Background(), "{}")
		assert.Equal(t, types.ErrTransport, types.GetErrorCode(err))
	})

	t.Run("malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		c := New(srv.URL, "co-1", time.Second, nil)
		_, err := c.Diagnose(context.Background(), "{}")
		assert.Equal(t, types.ErrMalformedPayload, types.GetErrorCode(err))
	})

	t.Run("missing diagnosis field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"other": "x"})
		}))
		defer srv.Close()

		c := New(srv.URL, "co-1", time.Second, nil)
		_, err := c.Diagnose(context.Background(), "{}")
		assert.Equal(t, types.ErrMalformedPayload, types.GetErrorCode(err))
	})
}

func TestGenerateReport(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/generate-report", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "co-1", time.Second, nil)
	err := c.GenerateReport(context.Background(), "sess-1", map[string]any{"main": []string{}})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got["sessionId"])
	assert.Contains(t, got, "transcript")
}
