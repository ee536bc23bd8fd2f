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
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"bennypowers.dev/kiln/project"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestInitReadsFile(t *testing.T) {
	resetViper(t)
	file := filepath.Join(t.TempDir(), "kiln.yaml")
	yaml := "project: web/tsconfig.json\njobs: 4\nwatch:\n  debounce: 250ms\n  ignore:\n    - \"**/*.gen.ts\"\n"
	if err := os.WriteFile(file, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Init(file); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if got := viper.GetString(KeyProject); got != "web/tsconfig.json" {
		t.Errorf("Expected project from the file, got %q", got)
	}
	if got := viper.GetInt(KeyJobs); got != 4 {
		t.Errorf("Expected 4 jobs, got %d", got)
	}
	if got := viper.GetDuration(KeyDebounce); got != 250*time.Millisecond {
		t.Errorf("Expected a 250ms debounce, got %v", got)
	}
	if got := viper.GetStringSlice(KeyIgnore); len(got) != 1 || got[0] != "**/*.gen.ts" {
		t.Errorf("Expected one ignore pattern, got %v", got)
	}
}

func TestInitDefaults(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())

	if err := Init(""); err != nil {
		t.Fatalf("Expected a missing kiln.yaml to be fine, got %v", err)
	}
	if got := viper.GetString(KeyProject); got != "." {
		t.Errorf("Expected the working directory as project, got %q", got)
	}
	if got := viper.GetInt(KeyDeclarationCacheSize); got != project.DefaultDeclarationCacheSize {
		t.Errorf("Expected the default cache size, got %d", got)
	}
}

func TestInitMissingExplicitFile(t *testing.T) {
	resetViper(t)
	if err := Init(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected an explicit missing config file to fail")
	}
}

func TestEnvironment(t *testing.T) {
	resetViper(t)
	t.Chdir(t.TempDir())
	t.Setenv("KILN_JOBS", "3")
	t.Setenv("KILN_WATCH_METRICS_ADDR", ":9464")

	if err := Init(""); err != nil {
		t.Fatal(err)
	}
	if got := viper.GetInt(KeyJobs); got != 3 {
		t.Errorf("Expected jobs from the environment, got %d", got)
	}
	if got := viper.GetString(KeyMetricsAddr); got != ":9464" {
		t.Errorf("Expected the metrics address from the environment, got %q", got)
	}
	if opts := ServiceOptions(nil, nil); opts.Project.Jobs != 3 {
		t.Errorf("Expected service options to carry jobs, got %d", opts.Project.Jobs)
	}
}

func TestProjectPath(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Chdir(dir)
	viper.Set(KeyProject, "app")

	got, err := ProjectPath()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Abs(filepath.Join(dir, "app"))
	if got != want || strings.Contains(got, "\\") {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestLogger(t *testing.T) {
	resetViper(t)
	var buf bytes.Buffer
	Logger(&buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug output to be dropped, got %q", buf.String())
	}

	viper.Set(KeyVerbose, true)
	Logger(&buf).Debug("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("Expected debug output when verbose, got %q", buf.String())
	}
}
