package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformconfig "petvision-server-go/internal/platform/config"
	platformerrors "petvision-server-go/internal/platform/errors"
	"petvision-server-go/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeConfig(t *testing.T, store string) string {
	t.Helper()
	dir := t.TempDir()
	content := strings.Join([]string{
		"server:",
		"  ip: 127.0.0.1",
		"  port: 18080",
		"log:",
		"  log_level: INFO",
		"  log_dir: " + filepath.Join(dir, "logs"),
		"  log_file: smoke.log",
		"web:",
		"  enabled: false",
		"session:",
		"  store:",
		"    type: " + store,
		"    sqlite:",
		"      path: " + filepath.Join(dir, "smoke.db"),
		"",
	}, "\n")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLoader(path string, env map[string]string) *platformconfig.Loader {
	return platformconfig.NewLoader().
		WithDotEnv(false).
		WithPaths(path).
		WithEnv(func(k string) string { return env[k] })
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	seen := map[string]bool{}
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			assert.True(t, seen[dep], "step %s depends on %s which is declared later", step.ID, dep)
		}
		seen[step.ID] = true
	}
	assert.Equal(t, "config:load", steps[0].ID)
	assert.True(t, seen["vlllm:init-provider"])
	assert.True(t, seen["analysis:init-service"])
}

func TestExecuteInitGraphAndServeHealth(t *testing.T) {
	for _, store := range []string{"memory", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			state := &appState{loader: testLoader(writeConfig(t, store), map[string]string{
				platformconfig.EnvAPIKey: "smoke-key",
			})}
			t.Cleanup(state.close)

			require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
			require.NotNil(t, state.logger)
			require.NotNil(t, state.analysis)
			require.NotNil(t, state.tokens)
			require.NotNil(t, state.observabilityShutdown)
			if store == "sqlite" {
				require.NotNil(t, state.db)
			} else {
				assert.Nil(t, state.db)
			}

			handler, err := buildHTTPHandler(state)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			require.Equal(t, http.StatusOK, w.Code)

			var body struct {
				Success bool `json:"success"`
				Data    struct {
					Status   string         `json:"status"`
					Provider map[string]any `json:"provider"`
					Sessions map[string]any `json:"sessions"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.True(t, body.Success)
			assert.Equal(t, "ok", body.Data.Status)
			assert.Equal(t, "gemini", body.Data.Provider["type"])
			assert.Equal(t, store, body.Data.Sessions["type"])

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "/flows/{flow}/analysis")

			w = httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestMissingAPIKeyFailsBeforeListening(t *testing.T) {
	err := RunWithLoader(context.Background(), testLoader(writeConfig(t, "memory"), nil))
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))
	assert.Contains(t, err.Error(), platformconfig.EnvAPIKey)
}

func TestRandomSecretWhenUnset(t *testing.T) {
	state := &appState{loader: testLoader(writeConfig(t, "memory"), map[string]string{
		platformconfig.EnvAPIKey: "k",
	})}
	t.Cleanup(state.close)
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))

	id, token, err := state.tokens.NewSession()
	require.NoError(t, err)
	got, err := state.tokens.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logCfg := &utils.LogCfg{
		LogLevel: "INFO",
		LogDir:   tmp,
		LogFile:  "graph.log",
	}
	logger, err := utils.NewLogger(logCfg)
	require.NoError(t, err)
	logBootstrapGraph(InitGraph(), logger)
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, logCfg.LogFile))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "初始化依赖关系概览")
	for _, step := range InitGraph() {
		assert.Contains(t, content, step.ID)
	}
}
