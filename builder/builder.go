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
	"log/slog"
)

// ErrNotTracked is returned when a caller asks about a file the host does
// not list as part of the project.
var ErrNotTracked = errors.New("file is not part of the project")

// Builder tracks incremental emit state for one project.
//
// A Builder is not safe for concurrent use. Callers serialize access; the
// host may be slow but is treated as synchronous.
type Builder struct {
	host     Host
	logger   *slog.Logger
	observer Observer
	strategy strategy
	files    fileTable

	// projectVersion is the host project version at the last graph update.
	projectVersion    string
	hasProjectVersion bool

	// violations counts reference graph invariant violations seen so far.
	violations int
}

// New creates a Builder for host. The strategy is chosen once from the
// host's compiler options. A nil logger discards output.
func New(host Host, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{
		host:     host,
		observer: nopObserver{},
		files:    newFileTable(),
	}
	b.strategy = selectStrategy(b, host.CompilerOptions())
	b.logger = logger.With("strategy", b.strategy.name())
	return b
}

// WithObserver installs an observer for builder counters.
func (b *Builder) WithObserver(o Observer) *Builder {
	if o == nil {
		o = nopObserver{}
	}
	b.observer = o
	return b
}

// Strategy returns the name of the active strategy.
func (b *Builder) Strategy() string {
	return b.strategy.name()
}

// FilesAffectedBy returns the files that must be re-emitted because path
// changed. The order carries no meaning. It returns ErrNotTracked when the
// host does not list path.
func (b *Builder) FilesAffectedBy(path Path) ([]Path, error) {
	res, err := b.filesAffectedBy(path)
	if err != nil {
		return nil, err
	}
	return res.paths, nil
}

func (b *Builder) filesAffectedBy(path Path) (affected, error) {
	b.OnProjectUpdateGraph()

	rec, ok := b.files.lookup(path)
	if !ok {
		return affected{}, fmt.Errorf("%w: %s", ErrNotTracked, path)
	}
	res := b.strategy.filesAffectedBy(rec)
	b.observer.Affected(b.strategy.name(), len(res.paths), res.shapeChanged)
	b.logger.Debug("files affected", "file", path, "count", len(res.paths), "shapeChanged", res.shapeChanged)
	return res, nil
}

// OnProjectUpdateGraph brings the builder in line with the host's file set.
// It is a no-op while the host project version is unchanged. New files are
// registered, deleted files are detached from the graph in both directions,
// and, for the module strategy, references are recomputed for every file
// whose text changed.
func (b *Builder) OnProjectUpdateGraph() {
	version := b.host.ProjectVersion()
	if b.hasProjectVersion && b.projectVersion == version {
		return
	}

	names := b.host.FileNames()
	current := make(map[Path]struct{}, len(names))
	added := 0
	for _, name := range names {
		if _, seen := current[name]; seen {
			continue
		}
		current[name] = struct{}{}
		if _, ok := b.files.lookup(name); !ok {
			b.register(name)
			added++
		}
	}

	removed := 0
	for _, rec := range b.files.live() {
		if _, ok := current[rec.path]; !ok {
			b.removeFile(rec)
			removed++
		}
	}

	if b.strategy.tracksReferences() {
		// A new file can make a previously unresolved import resolvable
		// without the importing file changing.
		if added > 0 && b.hasProjectVersion {
			for _, rec := range b.files.live() {
				rec.forgetReferenceVersion()
			}
		}
		for _, rec := range b.files.live() {
			b.updateFileReferences(rec)
		}
	}

	b.projectVersion = version
	b.hasProjectVersion = true
	b.logger.Debug("project graph updated",
		"version", version,
		"files", b.files.len(),
		"added", added,
		"removed", removed)
}

func (b *Builder) register(path Path) *fileRecord {
	rec := b.files.add(path)
	rec.isNonEmittable = b.host.HasMixedContent(path)
	return rec
}

func (b *Builder) removeFile(rec *fileRecord) {
	b.removeAllReferences(rec)
	b.files.remove(rec)
}

// References returns the files path references, sorted by identity.
func (b *Builder) References(path Path) []Path {
	rec, ok := b.files.lookup(path)
	if !ok {
		return nil
	}
	return b.files.paths(rec.references)
}

// ReferencedBy returns the files that reference path, sorted by identity.
func (b *Builder) ReferencedBy(path Path) []Path {
	rec, ok := b.files.lookup(path)
	if !ok {
		return nil
	}
	return b.files.paths(rec.referencedBy)
}

// Tracked reports whether path is registered with the builder.
func (b *Builder) Tracked(path Path) bool {
	_, ok := b.files.lookup(path)
	return ok
}
