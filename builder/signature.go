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
package builder

import (
	"crypto/sha256"
	"encoding/base64"
)

// ComputeHash returns the shape digest of text: SHA-256, base64 encoded.
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// updateShapeSignature recomputes the shape signature of rec and reports
// whether it changed. The new signature is always stored.
//
// Declaration files are hashed from their own text; every other file from
// its declaration emit, so an edit inside a function body leaves the
// signature alone. A file the host cannot resolve counts as changed.
func (b *Builder) updateShapeSignature(rec *fileRecord) bool {
	changed := b.computeShapeSignature(rec)
	b.observer.ShapeChecked(changed)
	return changed
}

func (b *Builder) computeShapeSignature(rec *fileRecord) bool {
	sf, ok := b.host.SourceFile(rec.path)
	if !ok {
		rec.forgetShape()
		return true
	}
	rec.classify(sf)

	text := sf.Text
	if !sf.IsDeclarationFile {
		text, ok = b.host.DeclarationEmit(rec.path)
		if !ok {
			rec.forgetShape()
			return true
		}
	}

	previous, hadPrevious := rec.lastShape, rec.hasShape
	rec.lastShape = ComputeHash(text)
	rec.hasShape = true
	return !hadPrevious || previous != rec.lastShape
}

// contentChangedSinceEmit reports whether rec was edited since it was last
// emitted. Files never emitted count as changed.
func (b *Builder) contentChangedSinceEmit(rec *fileRecord) bool {
	return !rec.hasEmitted || b.host.ScriptVersion(rec.path) != rec.lastEmitted
}
