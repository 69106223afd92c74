package main

import (
	"errors"
	"flag"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain_Invoke runs in a subprocess to execute main() with the arguments after "--".
func TestMain_Invoke(t *testing.T) {
	if os.Getenv("MEDIACYCLE_TEST_MAIN") != "1" {
		return
	}

	args := []string{}
	for i, arg := range os.Args {
		if arg == "--" {
			args = os.Args[i+1:]
			break
		}
	}
	os.Args = append([]string{"mediacycle"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	main()
}

func runMain(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestMain_Invoke", "--"}, args...)...)
	cmd.Env = append(append(os.Environ(), "MEDIACYCLE_TEST_MAIN=1"), env...)

	output, err := cmd.CombinedOutput()
	return string(output), err
}

func TestMain_MissingConfig(t *testing.T) {
	output, err := runMain(t, nil, "-config", "does-not-exist.yml")

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got err=%v output=%s", err, output)
	}

	if !strings.Contains(output, "failed to load configuration") {
		t.Fatalf("expected config load failure, got: %s", output)
	}
	if !strings.Contains(output, "does-not-exist.yml") {
		t.Fatalf("expected -config path to be used, got: %s", output)
	}
}

func TestMain_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	output, err := runMain(t, nil, "-config", path)

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got err=%v output=%s", err, output)
	}
	if !strings.Contains(output, "validate config") {
		t.Fatalf("expected validation failure, got: %s", output)
	}
	if !strings.Contains(output, path) {
		t.Fatalf("expected %s to be loaded, got: %s", path, output)
	}
}

func TestMain_EmptyConfigFlag(t *testing.T) {
	output, err := runMain(t, nil, "-config", "  ")

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got err=%v", err)
	}
	if !strings.Contains(output, "Usage of mediacycle") || !strings.Contains(output, "-config") {
		t.Fatalf("expected usage text, got: %s", output)
	}
	if strings.Contains(output, "loading configuration") {
		t.Fatalf("empty -config must stop before loading, got: %s", output)
	}
}

func TestMain_UnknownFlag(t *testing.T) {
	output, err := runMain(t, nil, "-listen", ":8080")

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 2 {
		t.Fatalf("expected exit code 2, got err=%v output=%s", err, output)
	}
	if !strings.Contains(output, "flag provided but not defined: -listen") {
		t.Fatalf("expected flag parse error, got: %s", output)
	}
}
