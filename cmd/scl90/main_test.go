package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scl90-gate/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateServer accepts only code GOOD
func gateServer(t *testing.T) *int32 {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req["code"] != "GOOD" {
			_, _ = w.Write([]byte(`{"valid":false,"message":"访问码无效"}`))
			return
		}
		_, _ = w.Write([]byte(`{"valid":true,"firstAccessAt":"` + time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00") + `"}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("SCL90_API_URL", srv.URL)
	t.Setenv("SCL90_STATE_FILE", filepath.Join(t.TempDir(), "session.json"))
	return &calls
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_AuthorizeStatusForget(t *testing.T) {
	calls := gateServer(t)

	code, out, _ := runCLI("status")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "未授权")

	code, out, errOut := runCLI("authorize", "-code", "GOOD")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "服务器验证")
	assert.Contains(t, out, "剩余时间：23h 59m")

	code, out, _ = runCLI("status")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "本机缓存")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	code, _, _ = runCLI("forget")
	assert.Equal(t, 0, code)
	code, _, _ = runCLI("status")
	assert.Equal(t, 1, code)
}

func TestCLI_AuthorizeDenied(t *testing.T) {
	gateServer(t)

	code, _, errOut := runCLI("authorize", "-code", "BAD")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "访问码无效")
}

func TestCLI_ServerUnavailable(t *testing.T) {
	t.Setenv("SCL90_API_URL", "http://127.0.0.1:1")
	t.Setenv("SCL90_STATE_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("SCL90_TIMEOUT", "500ms")

	code, _, errOut := runCLI("authorize", "-code", "GOOD")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "系统错误，请稍后重试。")
}

func TestCLI_Score(t *testing.T) {
	gateServer(t)

	answers := strings.Fields(strings.Repeat("1 ", scoring.ItemCount))
	code, out, errOut := runCLI(append([]string{"score", "-code", "GOOD"}, answers...)...)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "总分：90")
	assert.Contains(t, out, "躯体化")
	assert.Contains(t, out, "整体心理健康状况良好")

	code, out, errOut = runCLI(append([]string{"score", "-json"}, answers...)...)
	require.Equal(t, 0, code, errOut)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, float64(90), report["totalScore"])
	assert.Equal(t, "good", report["interpretation"].(map[string]interface{})["level"])
}

func TestCLI_ScoreRequiresAccess(t *testing.T) {
	calls := gateServer(t)

	code, _, errOut := runCLI("score", "1", "2")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "-code")
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestCLI_ScoreRejectsBadAnswers(t *testing.T) {
	gateServer(t)

	code, _, errOut := runCLI("score", "-code", "GOOD", "1", "2", "3")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "无效的答卷")
}

func TestCLI_Usage(t *testing.T) {
	gateServer(t)

	code, _, errOut := runCLI()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage")

	code, _, _ = runCLI("bogus")
	assert.Equal(t, 2, code)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "22h 30m", formatRemaining(22*time.Hour+30*time.Minute+15*time.Second))
	assert.Equal(t, "0m", formatRemaining(-time.Minute))
}
