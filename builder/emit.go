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
)

// Sink writes one emitted artifact.
type Sink func(Artifact) error

// AffectedResult is the outcome of EmitAffected.
type AffectedResult struct {
	// Trigger is the edited file.
	Trigger Path
	// Affected lists the files the edit could affect.
	Affected []Path
	// Emitted lists the files whose artifacts were written.
	Emitted []Path
	// ShapeChanged is set when the trigger's public shape changed.
	ShapeChanged bool
}

// EmitFile emits path through sink unless it is up to date. It returns true
// when artifacts were written. Untracked and non-emittable files are a no-op.
//
// Without forced, a file is only emitted when its script version differs
// from the version at its last emit, so emitting twice in a row writes once.
// The only error is a sink failure, after which the file counts as edited
// since its last emit until a later emit succeeds.
func (b *Builder) EmitFile(path Path, sink Sink, forced bool) (bool, error) {
	b.OnProjectUpdateGraph()

	if !b.needsEmit(path, forced) {
		return false, nil
	}
	rec, _ := b.files.lookup(path)
	version := b.host.ScriptVersion(path)

	out := b.host.Emit(path)
	if out.EmitSkipped {
		return false, nil
	}
	for _, artifact := range out.Artifacts {
		if err := sink(artifact); err != nil {
			// part of the output may be on disk; treat the file as never emitted
			rec.lastEmitted = ""
			rec.hasEmitted = false
			return false, fmt.Errorf("writing %s: %w", artifact.Path, err)
		}
	}

	rec.lastEmitted = version
	rec.hasEmitted = true
	b.observer.Emitted(path, len(out.Artifacts))
	b.logger.Debug("emitted", "file", path, "artifacts", len(out.Artifacts), "forced", forced)
	return true, nil
}

func (b *Builder) needsEmit(path Path, forced bool) bool {
	rec, ok := b.files.lookup(path)
	if !ok || rec.isNonEmittable {
		return false
	}
	return forced || !rec.hasEmitted || rec.lastEmitted != b.host.ScriptVersion(path)
}

// EmitFiles emits every file of paths that is not up to date, or all of
// them when forced, and returns the files written. Sink failures do not
// stop the remaining emits; they are joined into the returned error.
//
// With a single output, emitting any file writes the whole bundle, so the
// bundle is written at most once per call and every file it covers counts
// as emitted.
func (b *Builder) EmitFiles(paths []Path, sink Sink, forced bool) ([]Path, error) {
	return b.emitFiles(paths, sink, func(Path) bool { return forced })
}

func (b *Builder) emitFiles(paths []Path, sink Sink, forced func(Path) bool) ([]Path, error) {
	if b.host.CompilerOptions().SingleOutput() {
		return b.emitBundle(paths, sink, forced)
	}
	var emitted []Path
	var errs []error
	for _, p := range paths {
		ok, err := b.EmitFile(p, sink, forced(p))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			emitted = append(emitted, p)
		}
	}
	return emitted, errors.Join(errs...)
}

// emitBundle writes the combined output through the first pending file that
// the host can emit, then stamps every file as emitted at its current
// version, since the bundle holds all of their text.
func (b *Builder) emitBundle(paths []Path, sink Sink, forced func(Path) bool) ([]Path, error) {
	b.OnProjectUpdateGraph()

	var pending []Path
	for _, p := range paths {
		if b.needsEmit(p, forced(p)) {
			pending = append(pending, p)
		}
	}
	for i, p := range pending {
		ok, err := b.EmitFile(p, sink, true)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		emitted := []Path{p}
		for _, other := range pending[i+1:] {
			if sf, ok := b.host.SourceFile(other); ok && !sf.IsDeclarationFile {
				emitted = append(emitted, other)
			}
		}
		for _, rec := range b.files.live() {
			if !rec.isNonEmittable {
				rec.lastEmitted = b.host.ScriptVersion(rec.path)
				rec.hasEmitted = true
			}
		}
		b.logger.Debug("bundle emitted", "via", p, "covered", len(emitted))
		return emitted, nil
	}
	return nil, nil
}

// EmitAffected is compile-on-save: it computes the files affected by an edit
// of path and emits each of them. When the trigger's shape changed the
// affected files are emitted even if their own text is unchanged, because
// their output may depend on the trigger's declarations.
//
// Sink failures do not stop the remaining emits; they are joined into the
// returned error.
func (b *Builder) EmitAffected(path Path, sink Sink) (AffectedResult, error) {
	res, err := b.filesAffectedBy(path)
	if err != nil {
		return AffectedResult{}, err
	}

	result := AffectedResult{Trigger: path, Affected: res.paths, ShapeChanged: res.shapeChanged}
	result.Emitted, err = b.EmitFiles(res.paths, sink, res.shapeChanged)
	return result, err
}

// EmitAffectedAll is compile-on-save for a batch of edits. The affected
// files of every trigger are computed first and their union is emitted in
// one pass, so a file affected by several triggers is written once. A file
// is forced when any trigger that affects it changed shape.
//
// Untracked triggers are skipped and get no result.
func (b *Builder) EmitAffectedAll(paths []Path, sink Sink) ([]AffectedResult, error) {
	var results []AffectedResult
	var union []Path
	forced := make(map[Path]bool)
	for _, p := range paths {
		res, err := b.filesAffectedBy(p)
		if errors.Is(err, ErrNotTracked) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, AffectedResult{Trigger: p, Affected: res.paths, ShapeChanged: res.shapeChanged})
		for _, a := range res.paths {
			f, seen := forced[a]
			if !seen {
				union = append(union, a)
			}
			forced[a] = f || res.shapeChanged
		}
	}

	emitted, err := b.emitFiles(union, sink, func(p Path) bool { return forced[p] })
	written := make(map[Path]bool, len(emitted))
	for _, p := range emitted {
		written[p] = true
	}
	for i := range results {
		for _, a := range results[i].Affected {
			// each write is reported under the first trigger that caused it
			if written[a] {
				results[i].Emitted = append(results[i].Emitted, a)
				delete(written, a)
			}
		}
	}
	return results, err
}
