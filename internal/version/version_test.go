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
package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestDepVersion(t *testing.T) {
	info := &debug.BuildInfo{Deps: []*debug.Module{
		{Path: runtimeModule, Version: "v0.24.0"},
		{Path: grammarModule, Version: "v0.23.2", Replace: &debug.Module{Path: "../grammar", Version: "v0.23.3"}},
	}}
	if got := depVersion(info, runtimeModule); got != "v0.24.0" {
		t.Errorf("Expected v0.24.0, got %s", got)
	}
	if got := depVersion(info, grammarModule); got != "v0.23.3" {
		t.Errorf("Expected the replacement version, got %s", got)
	}
	if got := depVersion(info, "example.com/missing"); got != "unknown" {
		t.Errorf("Expected unknown, got %s", got)
	}
	if got := depVersion(nil, grammarModule); got != "unknown" {
		t.Errorf("Expected unknown without build info, got %s", got)
	}
}

func TestVersionFromGit(t *testing.T) {
	defer func(v, c, tag, d string) { Version, GitCommit, GitTag, GitDirty = v, c, tag, d }(Version, GitCommit, GitTag, GitDirty)

	Version, GitTag, GitCommit, GitDirty = "dev", "v1.2.0", "0123456789abcdef", "dirty"
	if got := versionFrom(nil); got != "v1.2.0-0123456-dirty" {
		t.Errorf("Expected tag, short commit and dirty marker, got %s", got)
	}

	Version = "v9.9.9"
	if got := versionFrom(nil); got != "v9.9.9" {
		t.Errorf("Expected the ldflags version to win, got %s", got)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.0.0", GitCommit: "abc1234", Go: "go1.25.5", TreeSitter: "v0.24.0", Grammar: "v0.23.2"}
	got := info.String()
	want := "kiln v1.0.0 (commit: abc1234)\ngo1.25.5, tree-sitter v0.24.0, typescript grammar v0.23.2"
	if got != want {
		t.Errorf("Expected:\n%s\nGot:\n%s", want, got)
	}
	info.GitCommit = "unknown"
	if !strings.HasPrefix(info.String(), "kiln v1.0.0\n") {
		t.Errorf("Expected no commit without git information, got %s", info.String())
	}
}
