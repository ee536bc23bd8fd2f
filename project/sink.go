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
package project

import (
	"fmt"
	"path"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/fs"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteSink returns a sink that writes artifacts to fsys, creating parent
// directories as needed.
func WriteSink(fsys fs.Writer) builder.Sink {
	return func(a builder.Artifact) error {
		if err := fsys.MkdirAll(path.Dir(a.Path), 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		data := []byte(a.Text)
		if a.WriteByteOrderMark {
			data = append(append([]byte(nil), utf8BOM...), data...)
		}
		return fsys.WriteFile(a.Path, data, 0644)
	}
}
