package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	harnesserrors "regress/internal/shared/errors"
)

func loadFromArgs(t *testing.T, args ...string) (appConfig, error) {
	t.Helper()
	flags := pflag.NewFlagSet("regress", pflag.ContinueOnError)
	registerFlags(flags)
	require.NoError(t, flags.Parse(args))

	v := viper.New()
	if err := bindConfig(v, flags); err != nil {
		return appConfig{}, err
	}
	return loadAppConfig(v)
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := loadFromArgs(t)
	require.NoError(t, err)
	require.Equal(t, "./optimix", cfg.Compiler)
	require.Equal(t, "examples", cfg.ExamplesDir)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Empty(t, cfg.Tags)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadAppConfigPrecedence(t *testing.T) {
	t.Setenv("REGRESS_COMPILER", "/from/env")
	t.Setenv("REGRESS_EXAMPLES_DIR", "env-examples")

	cfg, err := loadFromArgs(t, "--compiler", "/from/flag")
	require.NoError(t, err)
	require.Equal(t, "/from/flag", cfg.Compiler)
	require.Equal(t, "env-examples", cfg.ExamplesDir)
}

func TestLoadAppConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 2s\ntag: [loop, print]\n"), 0o644))

	cfg, err := loadFromArgs(t, "--config", path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.Timeout)
	require.Equal(t, []string{"loop", "print"}, cfg.Tags)

	_, err = loadFromArgs(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Equal(t, harnesserrors.KindConfig, harnesserrors.KindOf(err))
}

func TestParseTagList(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, parseTagList([]string{" a,b ", "", "c"}))
	require.Equal(t, []string{"a", "b"}, parseTagList([]string{"a b"}))
	require.Nil(t, parseTagList(nil))
}

func TestResolveCompiler(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "optimix")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	got, err := resolveCompiler(exe)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(got))

	_, err = resolveCompiler(filepath.Join(dir, "missing"))
	require.Equal(t, harnesserrors.KindExecutableNotFound, harnesserrors.KindOf(err))
	require.True(t, errors.Is(err, os.ErrNotExist))

	_, err = resolveCompiler(dir)
	require.Equal(t, harnesserrors.KindExecutableNotFound, harnesserrors.KindOf(err))

	rel, err := resolveCompiler("./optimix")
	if err == nil {
		require.True(t, filepath.IsAbs(rel))
	}
}

func TestExitCodeFor(t *testing.T) {
	require.Equal(t, 0, exitCodeFor(nil))
	require.Equal(t, 2, exitCodeFor(usageError(errors.New("bad flag"))))
	require.Equal(t, 1, exitCodeFor(&ExitCodeError{Code: 1, Err: errors.New("suite failed")}))
	require.Equal(t, 2, exitCodeFor(harnesserrors.NewConfigError(nil, "bad suite")))
	require.Equal(t, 1, exitCodeFor(&harnesserrors.ExecutableNotFoundError{Path: "./optimix"}))
	require.Equal(t, 1, exitCodeFor(&harnesserrors.TimeoutError{Source: "examples/loop.optx"}))
	require.Equal(t, 1, exitCodeFor(&ExitCodeError{Code: 1}))
	require.Equal(t, 1, exitCodeFor(errors.New("other")))
}
