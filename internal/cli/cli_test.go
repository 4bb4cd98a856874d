package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typescope/internal/metrics"
	"typescope/internal/server"
	"typescope/pkg/channel"
	"typescope/pkg/extractor"
	"typescope/pkg/model"
	"typescope/pkg/output"
	"typescope/pkg/typesys/reflectprovider"
)

// startAgent runs a streaming server on a unix socket in a temp dir
func startAgent(t *testing.T) (*server.Server, string) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "ts.sock")
	logger := zerolog.Nop()

	registry := reflectprovider.New("demo").
		Register(model.Snapshot{}, model.TypeDescriptor{}, model.PropertyDescriptor{}).
		RegisterEnum(channel.ModeDuplex, "ModeDuplex", "ModeSendOnly")
	srv := server.New(
		channel.NewSocketOpener("unix", sock, 20*time.Millisecond, logger),
		extractor.New(registry, extractor.WithLogger(logger)),
		server.WithLogger(logger),
	)
	srv.SetInterval(100)
	srv.Start()
	t.Cleanup(srv.Stop)

	require.Eventually(t, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
	return srv, sock
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTypesCmd_JSON(t *testing.T) {
	_, sock := startAgent(t)

	out, err := run(t, "--transport", "unix", "--address", sock, "types", "-o", "json", "--filter", "model.")
	require.NoError(t, err)

	var views []output.TypeView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 3)
	for _, v := range views {
		assert.True(t, strings.HasPrefix(v.FullName, "typescope/pkg/model."))
		assert.Equal(t, "struct", v.Kind)
		assert.Empty(t, v.Fields, "members are opt-in")
	}
}

func TestTypesCmd_TextMembers(t *testing.T) {
	_, sock := startAgent(t)

	out, err := run(t, "--transport", "unix", "--address", sock, "types", "--filter", "channel.Mode", "--members")
	require.NoError(t, err)

	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "types=4")
	assert.Contains(t, out, "typescope/pkg/channel.Mode")
	assert.Contains(t, out, "ModeSendOnly")
}

func TestWatchCmd(t *testing.T) {
	_, sock := startAgent(t)

	out, err := run(t, "--transport", "unix", "--address", sock, "watch", "-n", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "demo  types=4")
	}
}

func TestIntervalCmd(t *testing.T) {
	srv, sock := startAgent(t)

	out, err := run(t, "--transport", "unix", "--address", sock, "interval", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "Requested interval 250ms")

	require.Eventually(t, func() bool { return srv.Interval() == 250*time.Millisecond }, 2*time.Second, 10*time.Millisecond)
}

func TestIntervalCmd_InvalidArgument(t *testing.T) {
	for _, arg := range []string{"abc", "-5", "50000000000"} {
		_, err := run(t, "--address", "/nonexistent.sock", "interval", arg)
		assert.Error(t, err, arg)
	}
}

func TestRefreshCmd(t *testing.T) {
	_, sock := startAgent(t)
	applied := metrics.CommandsTotal.WithLabelValues("refresh", "ok")
	before := testutil.ToFloat64(applied)

	out, err := run(t, "--transport", "unix", "--address", sock, "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Refresh requested")

	require.Eventually(t, func() bool { return testutil.ToFloat64(applied) == before+1 }, 2*time.Second, 10*time.Millisecond,
		"agent never applied the refresh")
}

func TestDialFailure(t *testing.T) {
	_, err := run(t, "--transport", "unix", "--address", filepath.Join(t.TempDir(), "missing.sock"), "--timeout", "200ms", "types")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to agent")
}
