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
// Package testutil loads test fixtures and golden files from testdata
// directories, either into memory or into a scratch directory on disk.
package testutil

import (
	"flag"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"testing"

	"bennypowers.dev/kiln/internal/mapfs"
)

// updateGolden enables updating golden files with actual output when -update flag is set.
var updateGolden = flag.Bool("update", false, "update golden files with actual output")

// testdataDirs are searched in order. Tests run in their package directory,
// so shared fixtures at the module root are one or two levels up.
var testdataDirs = []string{
	"testdata",
	filepath.Join("..", "testdata"),
	filepath.Join("..", "..", "testdata"),
}

// findTestdata returns the first existing testdata path for name.
func findTestdata(name string) (string, bool) {
	for _, dir := range testdataDirs {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// NewFixtureFS loads the fixture project in testdata/fixtureDir into an
// in-memory file system below rootPath.
func NewFixtureFS(t *testing.T, fixtureDir string, rootPath string) *mapfs.MapFileSystem {
	t.Helper()

	dir, ok := findTestdata(fixtureDir)
	if !ok {
		t.Fatalf("Could not find fixtures at %s (tried all paths)", fixtureDir)
	}

	mfs := mapfs.New()
	fixture := os.DirFS(dir)
	err := fs.WalkDir(fixture, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(fixture, name)
		if err != nil {
			return err
		}
		mfs.AddFile(path.Join(rootPath, name), string(content), 0644)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to load fixtures from %s: %v", fixtureDir, err)
	}
	return mfs
}

// CopyFixture copies the fixture project in testdata/fixtureDir into a
// fresh temporary directory and returns its path. Use it when the code
// under test writes output next to the sources.
func CopyFixture(t *testing.T, fixtureDir string) string {
	t.Helper()

	src, ok := findTestdata(fixtureDir)
	if !ok {
		t.Fatalf("Could not find fixtures at %s (tried all paths)", fixtureDir)
	}
	dst := t.TempDir()
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		t.Fatalf("Failed to copy fixtures from %s: %v", fixtureDir, err)
	}
	return dst
}

// LoadFixtureFile reads a single fixture file and returns its content.
// The fixturePath should be relative to testdata/.
func LoadFixtureFile(t *testing.T, fixturePath string) []byte {
	t.Helper()

	p, ok := findTestdata(fixturePath)
	if !ok {
		t.Fatalf("Failed to find fixture %s (tried all paths)", fixturePath)
	}
	content, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", fixturePath, err)
	}
	return content
}

// LoadGoldenFile reads a golden file (expected output) from testdata.
// If the -update flag is set, returns nil so the caller can write actual output.
func LoadGoldenFile(t *testing.T, goldenPath string) []byte {
	t.Helper()
	if *updateGolden {
		return nil
	}
	return LoadFixtureFile(t, goldenPath)
}

// UpdateGoldenFile writes actual output to the golden file when -update flag is set.
// No-ops when -update is not set. A golden file that does not exist yet is
// created in the package's own testdata directory.
func UpdateGoldenFile(t *testing.T, goldenPath string, actual []byte) {
	t.Helper()
	if !*updateGolden {
		return
	}

	target, ok := findTestdata(goldenPath)
	if !ok {
		target = filepath.Join(testdataDirs[0], filepath.FromSlash(goldenPath))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		t.Fatalf("Failed to create directory for golden file %s: %v", goldenPath, err)
	}
	if err := os.WriteFile(target, actual, 0644); err != nil {
		t.Fatalf("Failed to write golden file %s: %v", goldenPath, err)
	}
	t.Logf("Updated golden file: %s", target)
}
