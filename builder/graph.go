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
	"errors"
	"fmt"
	"slices"
)

// updateFileReferences recomputes the outgoing edges of rec and reconciles
// the referencedBy lists of every file it gained or lost an edge to.
// Both edge lists are sorted, so the reconciliation is a single ordered merge.
func (b *Builder) updateFileReferences(rec *fileRecord) {
	version := b.host.ScriptVersion(rec.path)
	if rec.hasReferenceVersion && rec.referenceVersion == version {
		return
	}

	newRefs := b.resolveReferences(rec)
	oldRefs := rec.references
	violations := b.violations

	var added, removed int
	oldIndex, newIndex := 0, 0
	for oldIndex < len(oldRefs) && newIndex < len(newRefs) {
		switch c := b.files.compare(oldRefs[oldIndex], newRefs[newIndex]); {
		case c < 0:
			// the old edge is gone
			b.removeReferencedBy(oldRefs[oldIndex], rec)
			removed++
			oldIndex++
		case c > 0:
			b.addReferencedBy(newRefs[newIndex], rec)
			added++
			newIndex++
		default:
			oldIndex++
			newIndex++
		}
	}
	for ; oldIndex < len(oldRefs); oldIndex++ {
		b.removeReferencedBy(oldRefs[oldIndex], rec)
		removed++
	}
	for ; newIndex < len(newRefs); newIndex++ {
		b.addReferencedBy(newRefs[newIndex], rec)
		added++
	}

	rec.references = newRefs
	// after a violation the stamp stays clear so the next update retries
	if b.violations == violations {
		rec.referenceVersion = version
		rec.hasReferenceVersion = true
	}
	if added > 0 || removed > 0 {
		b.observer.ReferencesUpdated(added, removed)
	}
}

// resolveReferences asks the host for the references of rec and maps them to
// record IDs, sorted by identity. Targets outside the project and
// self-references do not form edges.
func (b *Builder) resolveReferences(rec *fileRecord) []recordID {
	paths := b.host.ReferencedFiles(rec.path)
	if len(paths) == 0 {
		return nil
	}
	ids := make([]recordID, 0, len(paths))
	for _, p := range paths {
		target, ok := b.files.lookup(p)
		if !ok || target.id == rec.id {
			continue
		}
		ids = append(ids, target.id)
	}
	slices.SortFunc(ids, b.files.compare)
	return slices.Compact(ids)
}

// addReferencedBy records that from references the file with ID target.
func (b *Builder) addReferencedBy(target recordID, from *fileRecord) {
	rec := b.files.at(target)
	if len(rec.referencedBy) == 0 {
		rec.referencedBy = append(rec.referencedBy, from.id)
		return
	}
	i, found := slices.BinarySearchFunc(rec.referencedBy, from.id, b.files.compare)
	if found {
		b.invariantViolation(from, "%s already listed in referencedBy of %s", from.path, rec.path)
		return
	}
	rec.referencedBy = slices.Insert(rec.referencedBy, i, from.id)
}

// removeReferencedBy drops from out of the referencedBy list of target.
func (b *Builder) removeReferencedBy(target recordID, from *fileRecord) {
	rec := b.files.at(target)
	if rec == nil {
		return
	}
	i, found := slices.BinarySearchFunc(rec.referencedBy, from.id, b.files.compare)
	if !found {
		b.invariantViolation(from, "%s missing from referencedBy of %s", from.path, rec.path)
		return
	}
	rec.referencedBy = slices.Delete(rec.referencedBy, i, i+1)
}

// removeAllReferences detaches rec from the graph in both directions.
// Files that referenced rec lose their edge and their reference stamp, so the
// edge comes back if the file is added again.
func (b *Builder) removeAllReferences(rec *fileRecord) {
	for _, target := range rec.references {
		b.removeReferencedBy(target, rec)
	}
	rec.references = nil

	for _, id := range rec.referencedBy {
		referrer := b.files.at(id)
		if referrer == nil {
			continue
		}
		i, found := slices.BinarySearchFunc(referrer.references, rec.id, b.files.compare)
		if found {
			referrer.references = slices.Delete(referrer.references, i, i+1)
		} else {
			b.invariantViolation(referrer, "%s missing from references of %s", rec.path, referrer.path)
		}
		referrer.forgetReferenceVersion()
	}
	rec.referencedBy = nil
}

// invariantViolation reports an asymmetric edge. Debug builds panic; release
// builds forget the reference stamp of rec so its edges are recomputed on the
// next graph update.
func (b *Builder) invariantViolation(rec *fileRecord, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.violations++
	if debugInvariants {
		panic("builder: reference graph invariant violated: " + msg)
	}
	b.logger.Warn("reference graph invariant violated", "detail", msg)
	rec.forgetReferenceVersion()
}

// CheckInvariants verifies that every edge has its mirror and that every
// adjacency list is sorted by identity without duplicates.
func (b *Builder) CheckInvariants() error {
	var errs []error
	for _, rec := range b.files.live() {
		errs = append(errs, b.checkSorted(rec.path, "references", rec.references)...)
		errs = append(errs, b.checkSorted(rec.path, "referencedBy", rec.referencedBy)...)

		for _, id := range rec.references {
			target := b.files.at(id)
			if target == nil {
				continue
			}
			if !slices.Contains(target.referencedBy, rec.id) {
				errs = append(errs, fmt.Errorf("%s references %s without a mirror edge", rec.path, target.path))
			}
		}
		for _, id := range rec.referencedBy {
			referrer := b.files.at(id)
			if referrer == nil {
				continue
			}
			if !slices.Contains(referrer.references, rec.id) {
				errs = append(errs, fmt.Errorf("%s is referenced by %s without a mirror edge", rec.path, referrer.path))
			}
		}
	}
	return errors.Join(errs...)
}

func (b *Builder) checkSorted(owner Path, list string, ids []recordID) []error {
	var errs []error
	for i, id := range ids {
		if b.files.at(id) == nil {
			errs = append(errs, fmt.Errorf("%s: %s holds removed record %d", owner, list, id))
			return errs
		}
		if i > 0 && b.files.compare(ids[i-1], id) >= 0 {
			errs = append(errs, fmt.Errorf("%s: %s not strictly sorted at index %d", owner, list, i))
		}
	}
	return errs
}
