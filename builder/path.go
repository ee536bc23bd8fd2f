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

// Package builder decides which files of a project must be re-emitted after
// an edit, and emits them.
//
// Each project gets one Builder. It tracks a shape signature per file (a hash
// of the file's declaration output) and, for module projects, a bidirectional
// reference graph. An edit whose shape is unchanged only re-emits the edited
// file; a shape change propagates to the files that can observe it.
package builder

import (
	"path"
	"path/filepath"
	"strings"
)

// Path is the normalized identity of a project file. Two files are the same
// file iff their Paths are equal.
type Path string

// ToPath normalizes a file name into a Path. Relative names are resolved
// against currentDir. When caseSensitive is false the result is lower-cased.
func ToPath(fileName, currentDir string, caseSensitive bool) Path {
	p := filepath.ToSlash(fileName)
	if !path.IsAbs(p) && !isDriveAbs(p) {
		p = path.Join(filepath.ToSlash(currentDir), p)
	}
	p = path.Clean(p)
	if !caseSensitive {
		p = strings.ToLower(p)
	}
	return Path(p)
}

// isDriveAbs reports whether p starts with a windows drive letter, e.g. "c:/".
func isDriveAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && p[2] == '/'
}

// String returns the path as a plain string.
func (p Path) String() string {
	return string(p)
}

func comparePaths(a, b Path) int {
	return strings.Compare(string(a), string(b))
}
