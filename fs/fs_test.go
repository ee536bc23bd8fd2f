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
package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSWriteFileReplaces(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "main.js")
	osfs := NewOSFileSystem()

	for _, text := range []string{"export const a = 1;\n", "export const a = 2;\n"} {
		if err := osfs.WriteFile(name, []byte(text), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		got, err := osfs.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != text {
			t.Errorf("Expected %q, got %q", text, got)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected no temporary files to be left behind, got %v", entries)
	}
	info, err := osfs.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestOSWriteFileMissingDirectory(t *testing.T) {
	osfs := NewOSFileSystem()
	name := filepath.Join(t.TempDir(), "missing", "main.js")
	if err := osfs.WriteFile(name, []byte("x"), 0644); err == nil {
		t.Error("Expected an error when the directory does not exist")
	}
	if osfs.Exists(name) {
		t.Error("Expected nothing to be written")
	}
}
