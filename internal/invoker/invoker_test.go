package invoker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	harnesserrors "regress/internal/shared/errors"
	"regress/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.RunFakeCompilerIfRequested()
	os.Exit(m.Run())
}

func TestInvokeCapturesStdout(t *testing.T) {
	exe := testutil.FakeCompiler(t)
	src := testutil.WriteSource(t, t.TempDir(), "factorial.optx", "Generating IR...\nProgram returned: 120\n")

	res := New(Config{Executable: exe}).Invoke(context.Background(), src)

	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.NoError(t, res.Err)
	require.NotNil(t, res.ExitCode)
	require.Equal(t, 0, *res.ExitCode)
	require.True(t, res.Succeeded())
	require.Equal(t, "Generating IR...\nProgram returned: 120\n", res.Stdout)
	require.Empty(t, res.Stderr)
}

func TestInvokeNonZeroExitIsCompleted(t *testing.T) {
	exe := testutil.FakeCompiler(t)
	src := testutil.WriteSource(t, t.TempDir(), "crash.optx", "partial\n//! stderr segfault in codegen\n//! exit 3\n")

	res := New(Config{Executable: exe}).Invoke(context.Background(), src)

	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.NoError(t, res.Err)
	require.NotNil(t, res.ExitCode)
	require.Equal(t, 3, *res.ExitCode)
	require.False(t, res.Succeeded())
	require.Equal(t, "partial\n", res.Stdout)
	require.Equal(t, "segfault in codegen\n", res.Stderr)
}

func TestInvokeTimeoutKillsChild(t *testing.T) {
	exe := testutil.FakeCompiler(t)
	src := testutil.WriteSource(t, t.TempDir(), "hang.optx", "started\n//! sleep 30s\n")

	inv := New(Config{Executable: exe, Timeout: 200 * time.Millisecond})
	start := time.Now()
	res := inv.Invoke(context.Background(), src)

	require.Equal(t, OutcomeTimedOut, res.Outcome)
	require.Nil(t, res.ExitCode)
	require.Empty(t, res.Stdout)
	require.Less(t, time.Since(start), 10*time.Second)
	require.Equal(t, harnesserrors.KindTimeout, harnesserrors.KindOf(res.Err))
}

func TestInvokeMissingExecutable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "optimix")

	res := New(Config{Executable: missing}).Invoke(context.Background(), "examples/factorial.optx")

	require.Equal(t, OutcomeLaunchFailed, res.Outcome)
	require.Nil(t, res.ExitCode)
	require.Error(t, res.Err)
	require.Equal(t, harnesserrors.KindLaunchFailed, harnesserrors.KindOf(res.Err))
}

func TestInvokeNotExecutable(t *testing.T) {
	exe := testutil.WriteSource(t, t.TempDir(), "optimix", "not a binary")

	res := New(Config{Executable: exe}).Invoke(context.Background(), "examples/factorial.optx")

	require.Equal(t, OutcomeLaunchFailed, res.Outcome)
	require.Equal(t, harnesserrors.KindLaunchFailed, harnesserrors.KindOf(res.Err))
}

func TestInvokeCancelledContext(t *testing.T) {
	exe := testutil.FakeCompiler(t)
	src := testutil.WriteSource(t, t.TempDir(), "any.optx", "Program returned: 0\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(Config{Executable: exe}).Invoke(ctx, src)

	require.Equal(t, OutcomeLaunchFailed, res.Outcome)
	require.ErrorIs(t, res.Err, context.Canceled)
}

func TestInvokeDescendantHoldingPipesStillCompletes(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "optimix")
	script := "#!/bin/sh\nsleep 3 &\necho 'Program returned: 120'\nexit 0\n"
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))

	res := New(Config{Executable: exe}).Invoke(context.Background(), "examples/factorial.optx")

	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.NoError(t, res.Err)
	require.True(t, res.Succeeded())
	require.Equal(t, "Program returned: 120\n", res.Stdout)
	require.Less(t, res.Duration, DefaultTimeout)
}

func TestNewDefaultsTimeout(t *testing.T) {
	require.Equal(t, DefaultTimeout, New(Config{}).Timeout())
	require.Equal(t, time.Second, New(Config{Timeout: time.Second}).Timeout())
}
