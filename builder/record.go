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

// recordID indexes a fileRecord in its fileTable. IDs are never reused, so
// an ID that outlives its record resolves to nil instead of another file.
type recordID int

// fileRecord is the incremental state the builder keeps for one file.
type fileRecord struct {
	id   recordID
	path Path

	// Classification, refreshed from the host on every shape check.
	isDeclarationSource bool
	isAmbientOnly       bool
	isModule            bool
	isNonEmittable      bool

	// lastShape is only meaningful when hasShape is set; a missing
	// signature always counts as a change.
	lastShape string
	hasShape  bool

	// lastEmitted is the script version at the last successful emit.
	lastEmitted string
	hasEmitted  bool

	// references and referencedBy hold record IDs ordered by the Path of
	// the record they point to.
	references   []recordID
	referencedBy []recordID

	// referenceVersion is the script version references were computed at.
	referenceVersion    string
	hasReferenceVersion bool
}

func (r *fileRecord) classify(sf SourceFile) {
	r.isDeclarationSource = sf.IsDeclarationFile
	r.isAmbientOnly = sf.IsAmbientModuleOnly
	r.isModule = sf.IsExternalModule
}

func (r *fileRecord) forgetShape() {
	r.lastShape = ""
	r.hasShape = false
}

func (r *fileRecord) forgetReferenceVersion() {
	r.referenceVersion = ""
	r.hasReferenceVersion = false
}

// fileTable is the arena of records owned by one Builder.
type fileTable struct {
	records []*fileRecord
	index   map[Path]recordID
}

func newFileTable() fileTable {
	return fileTable{index: make(map[Path]recordID)}
}

// add registers a new record for path. The caller must check that the
// path is not already present.
func (t *fileTable) add(path Path) *fileRecord {
	rec := &fileRecord{id: recordID(len(t.records)), path: path}
	t.records = append(t.records, rec)
	t.index[path] = rec.id
	return rec
}

// lookup returns the live record for path.
func (t *fileTable) lookup(path Path) (*fileRecord, bool) {
	id, ok := t.index[path]
	if !ok {
		return nil, false
	}
	return t.records[id], true
}

// at returns the live record with the given ID, or nil once it was removed.
func (t *fileTable) at(id recordID) *fileRecord {
	if id < 0 || int(id) >= len(t.records) {
		return nil
	}
	return t.records[id]
}

// remove frees a record. Its edges must already be gone.
func (t *fileTable) remove(rec *fileRecord) {
	delete(t.index, rec.path)
	t.records[rec.id] = nil
}

// live returns every registered record in registration order.
func (t *fileTable) live() []*fileRecord {
	out := make([]*fileRecord, 0, len(t.index))
	for _, rec := range t.records {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (t *fileTable) len() int {
	return len(t.index)
}

// compare orders two records by identity. Both IDs must be live.
func (t *fileTable) compare(a, b recordID) int {
	return comparePaths(t.records[a].path, t.records[b].path)
}

func (t *fileTable) paths(ids []recordID) []Path {
	out := make([]Path, 0, len(ids))
	for _, id := range ids {
		if rec := t.at(id); rec != nil {
			out = append(out, rec.path)
		}
	}
	return out
}
