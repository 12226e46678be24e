package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

func TestMain(m *testing.M) {
	logCfg := config.NewDefaultConfig().Logger
	logCfg.Level = "debug"
	logCfg.ServiceName = "test-suite"
	observability.Initialize(logCfg, zapcore.Lock(os.Stdout))

	code := m.Run()

	observability.Sync()
	observability.ResetForTest()
	os.Exit(code)
}

func serviceConfig(endpoint string) config.OracleConfig {
	cfg := config.NewDefaultConfig().Oracle
	cfg.Mode = config.OracleModeService
	cfg.Endpoint = endpoint
	cfg.APIKey = "test-key"
	cfg.APITimeout = 5 * time.Second
	return cfg
}

func testRequest() schemas.DecisionRequest {
	return schemas.DecisionRequest{
		Screenshot: "aGVsbG8=",
		UITree:     schemas.UITree{Package: "com.example.app"},
		Context:    schemas.DecisionContext{Task: "open settings", SessionID: "s-1", Step: 1},
	}
}

func TestServiceClient_Decide(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req schemas.DecisionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "open settings", req.Context.Task)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"action":"tap","x":100,"y":200,"reason":"settings icon"}`))
	}))
	defer srv.Close()

	client, err := NewServiceClient(serviceConfig(srv.URL), observability.GetLogger())
	require.NoError(t, err)

	d, err := client.Decide(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionTap, d.Action)
	require.NotNil(t, d.X)
	assert.Equal(t, 100, *d.X)
}

func TestServiceClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"action":"wait","duration":500}`))
	}))
	defer srv.Close()

	client, err := NewServiceClient(serviceConfig(srv.URL), observability.GetLogger())
	require.NoError(t, err)

	d, err := client.Decide(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionWait, d.Action)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestServiceClient_PermanentErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewServiceClient(serviceConfig(srv.URL), observability.GetLogger())
	require.NoError(t, err)

	_, err = client.Decide(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewServiceClient_RequiresEndpoint(t *testing.T) {
	cfg := serviceConfig("")
	_, err := NewServiceClient(cfg, observability.GetLogger())
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	svcCfg := serviceConfig("http://localhost:1")
	o, err := New(svcCfg, observability.GetLogger())
	require.NoError(t, err)
	assert.IsType(t, &ServiceClient{}, o)

	bad := svcCfg
	bad.Mode = "psychic"
	_, err = New(bad, observability.GetLogger())
	assert.Error(t, err)
}
