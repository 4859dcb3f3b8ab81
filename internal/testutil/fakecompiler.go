// Package testutil provides a stand-in for the compiler under test.
//
// Test binaries re-exec themselves as the compiler: a package's TestMain calls
// RunFakeCompilerIfRequested, and tests pass FakeCompiler(t) as the compiler
// path. The fake reads the source file it is asked to compile and replays it:
// plain lines go to stdout, "//!" lines are directives.
//
//	//! stderr <text>   write text to stderr
//	//! sleep <dur>     sleep for a time.ParseDuration value
//	//! exit <code>     exit with code after replaying
package testutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

const fakeCompilerEnv = "REGRESS_FAKE_COMPILER"

const directivePrefix = "//!"

// RunFakeCompilerIfRequested turns the current process into the fake
// compiler when the marker variable is set. It never returns in that case.
func RunFakeCompilerIfRequested() {
	if os.Getenv(fakeCompilerEnv) != "1" {
		return
	}
	os.Exit(fakeCompile(os.Args[1:], os.Stdout, os.Stderr))
}

// FakeCompiler marks the environment so child processes act as the fake
// compiler and returns the path of the current test binary.
func FakeCompiler(t *testing.T) string {
	t.Helper()
	t.Setenv(fakeCompilerEnv, "1")
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve test executable: %v", err)
	}
	return exe
}

// WriteSource writes a fixture source file under dir and returns its path.
func WriteSource(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write source %s: %v", path, err)
	}
	return path
}

func fakeCompile(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 || args[0] != "compile" {
		fmt.Fprintln(stderr, "Usage: optimix compile <file>")
		return 2
	}

	f, err := os.Open(args[1])
	if err != nil {
		fmt.Fprintf(stderr, "Error: could not open file %s\n", args[1])
		return 1
	}
	defer f.Close()

	exitCode := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, directivePrefix) {
			fmt.Fprintln(stdout, line)
			continue
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, directivePrefix)), " ")
		switch verb {
		case "stderr":
			fmt.Fprintln(stderr, arg)
		case "sleep":
			if d, err := time.ParseDuration(arg); err == nil {
				time.Sleep(d)
			}
		case "exit":
			if code, err := strconv.Atoi(arg); err == nil {
				exitCode = code
			}
		}
	}
	return exitCode
}
