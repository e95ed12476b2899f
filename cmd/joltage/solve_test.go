package main

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/joltage/internal/config"
)

const referenceManual = `[.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}
[...#.] (0,2,3,4) (2,3) (0,4) (0,1,2) (1,2,3,4) {7,5,12,7,2}
[.###.#] (0,1,2,3,4) (0,3,4) (0,1,2,4,5) (1,2) {10,11,11,5,10,5}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSolve_ReferenceManual(t *testing.T) {
	path := writeFile(t, "manual.txt", referenceManual)

	out, _, err := execute(t, "", "solve", "--cross-check", path)
	require.NoError(t, err)

	assert.Contains(t, out, "machine 1: lights=2 presses=10 solver=linear")
	assert.Contains(t, out, "machine 2: lights=3 presses=12 solver=linear")
	assert.Contains(t, out, "machine 3: lights=2 presses=11 solver=linear")
	assert.Contains(t, out, "lights total: 7\n")
	assert.Contains(t, out, "presses total: 33\n")
	assert.NotContains(t, out, "impossible:")
}

func TestSolve_Stdin(t *testing.T) {
	out, _, err := execute(t, referenceManual, "solve", "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "presses total: 33\n")
}

func TestSolve_MultipleFilesKeepArgumentOrder(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(referenceManual), "\n")
	first := writeFile(t, "a.txt", lines[2]+"\n")
	second := writeFile(t, "b.txt", lines[0]+"\n")

	out, _, err := execute(t, "", "solve", first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "machine 1: lights=2 presses=11")
	assert.Contains(t, out, "machine 2: lights=2 presses=10")
	assert.Contains(t, out, "presses total: 21\n")
}

func TestSolve_PlanAndImpossible(t *testing.T) {
	path := writeFile(t, "manual.txt", "(0) (0,1) {3,2}\n(0) {1,1}\n")

	out, _, err := execute(t, "", "solve", "--plan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "machine 1: lights=impossible presses=3 solver=bruteforce")
	assert.Contains(t, out, "  plan [1 2]\n")
	assert.Contains(t, out, "machine 2: lights=impossible presses=impossible")
	assert.Contains(t, out, "impossible: 1\n")
}

func TestSolve_UnreachableLights(t *testing.T) {
	path := writeFile(t, "manual.txt", "[#.] (0,1) {1,1}\n")

	out, _, err := execute(t, "", "solve", path)
	require.NoError(t, err)
	assert.Contains(t, out, "machine 1: lights=impossible presses=1")
	assert.Contains(t, out, "lights total: 0\n")
	assert.Contains(t, out, "unreachable lights: 1\n")
}

func TestSolve_ParseErrorNamesFile(t *testing.T) {
	path := writeFile(t, "broken.txt", referenceManual+"[.#] (0)\n")

	_, _, err := execute(t, "", "solve", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "line 4")
}

func TestSolve_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "solve", filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestSolve_FlagsOverrideConfig(t *testing.T) {
	cfgPath := writeFile(t, "joltage.yaml", "log:\n  level: debug\n  format: json\n")
	path := writeFile(t, "manual.txt", referenceManual)

	_, stderr, err := execute(t, "", "solve", "--config", cfgPath, "--log-level", "warn", path)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "manuals parsed")

	_, stderr, err = execute(t, "", "solve", "--config", cfgPath, path)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"manuals parsed"`)
	assert.Contains(t, stderr, `"run_id"`)
}

func TestSolve_InvalidFlagValue(t *testing.T) {
	path := writeFile(t, "manual.txt", referenceManual)

	_, _, err := execute(t, "", "solve", "--trace-exporter", "zipkin", path)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = execute(t, "", "solve", "--workers", "-3", path)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = execute(t, "", "solve", "--metrics-addr", "127.0.0.1:9464", path)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestStopMetrics_LogsShutdownFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{
		Addr: ln.Addr().String(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			<-release
		}),
	}
	go func() { _ = srv.Serve(ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-entered

	var logs bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stopMetrics(ctx, srv, slog.New(slog.NewTextHandler(&logs, nil)))

	close(release)
	assert.Contains(t, logs.String(), "metrics server shutdown failed")
	assert.Contains(t, logs.String(), "context canceled")
	_ = srv.Close()
}
