/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/kiln/testutil"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "kiln_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "kiln_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "kiln_test")
	cmd := exec.Command(binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "kiln ") {
		t.Errorf("Expected version line, got: %s", stdout)
	}
}

func TestVersionFlag(t *testing.T) {
	stdout, stderr, code := runCLI(t, "--version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "kiln version ") {
		t.Errorf("Expected cobra version line, got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	for _, key := range []string{"version", "go", "treeSitter", "grammar"} {
		if info[key] == "" {
			t.Errorf("Expected %q in build info", key)
		}
	}
}

func TestBuild(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")

	stdout, stderr, code := runCLI(t, "build", "--project", dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	for _, name := range []string{"src/log.ts", "src/main.ts", "src/math.ts"} {
		if !strings.Contains(stdout, "emit "+name) {
			t.Errorf("Expected %s to be reported, got:\n%s", name, stdout)
		}
	}

	js, err := os.ReadFile(filepath.Join(dir, "dist", "math.js"))
	if err != nil {
		t.Fatalf("Expected dist/math.js: %v", err)
	}
	if strings.Contains(string(js), "interface") || strings.Contains(string(js), ": number") {
		t.Errorf("Expected types to be erased, got:\n%s", js)
	}
	dts, err := os.ReadFile(filepath.Join(dir, "dist", "math.d.ts"))
	if err != nil {
		t.Fatalf("Expected dist/math.d.ts: %v", err)
	}
	if strings.Contains(string(dts), "return") {
		t.Errorf("Expected declarations without bodies, got:\n%s", dts)
	}
}

func TestBuildMissingProject(t *testing.T) {
	_, stderr, code := runCLI(t, "build", "--project", t.TempDir())
	if code == 0 {
		t.Fatal("Expected a non-zero exit code")
	}
	if !strings.Contains(stderr, "no tsconfig.json found") {
		t.Errorf("Expected a missing config error, got: %s", stderr)
	}
}

func TestAffectedJSON(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")

	stdout, stderr, code := runCLI(t, "affected", filepath.Join(dir, "src", "math.ts"), "--project", dir, "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var entries []struct {
		File     string   `json:"file"`
		Affected []string `json:"affected"`
	}
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if len(entries) != 1 || entries[0].File != "src/math.ts" {
		t.Fatalf("Expected one entry for src/math.ts, got %+v", entries)
	}
	if want := []string{"src/main.ts", "src/math.ts"}; !slices.Equal(entries[0].Affected, want) {
		t.Errorf("Expected %v, got %v", want, entries[0].Affected)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Error("Expected affected without --emit to write nothing")
	}
}

func TestAffectedOutputFile(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")
	report := filepath.Join(t.TempDir(), "affected.txt")

	stdout, stderr, code := runCLI(t, "affected", filepath.Join(dir, "src", "log.ts"), "-p", dir, "-o", report)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}
	content, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if want := "src/log.ts affects 1 file\n  src/log.ts\n"; string(content) != want {
		t.Errorf("Expected %q, got %q", want, content)
	}
}

func TestAffectedEmit(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")

	_, stderr, code := runCLI(t, "affected", filepath.Join(dir, "src", "log.ts"), "-p", dir, "--emit")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "log.js")); err != nil {
		t.Errorf("Expected --emit to build the project: %v", err)
	}
}

func TestAffectedUntrackedFile(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")

	_, stderr, code := runCLI(t, "affected", filepath.Join(dir, "README.md"), "-p", dir)
	if code == 0 {
		t.Fatal("Expected a non-zero exit code")
	}
	if !strings.Contains(stderr, "not part of the project") {
		t.Errorf("Expected an untracked file error, got: %s", stderr)
	}
}

func TestAffectedInvalidFormat(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")

	_, stderr, code := runCLI(t, "affected", filepath.Join(dir, "src", "log.ts"), "-p", dir, "--format", "yaml")
	if code == 0 {
		t.Fatal("Expected a non-zero exit code")
	}
	if !strings.Contains(stderr, "invalid format") {
		t.Errorf("Expected an invalid format error, got: %s", stderr)
	}
}

func TestConfigFile(t *testing.T) {
	dir := testutil.CopyFixture(t, "app")
	cfg := filepath.Join(t.TempDir(), "kiln.yaml")
	if err := os.WriteFile(cfg, []byte("project: "+dir+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runCLI(t, "build", "--config", cfg)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "main.js")); err != nil {
		t.Errorf("Expected the project from kiln.yaml to be built: %v", err)
	}
}
