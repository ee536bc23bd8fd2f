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

import "strings"

// Strategy names reported by Builder.Strategy.
const (
	StrategyFlat   = "flat"
	StrategyModule = "module"
)

// strategy decides which files a shape change can affect.
type strategy interface {
	name() string
	// tracksReferences is true when the strategy needs the reference graph.
	tracksReferences() bool
	filesAffectedBy(rec *fileRecord) affected
}

// affected is the answer of a strategy for one trigger file.
type affected struct {
	paths []Path
	// shapeChanged is set when the trigger's shape signature changed, in
	// which case every listed file must be re-emitted even if its own text
	// did not change.
	shapeChanged bool
}

// selectStrategy picks the strategy for a project. Projects without a module
// system get the flat strategy, everything else the module graph.
func selectStrategy(b *Builder, opts CompilerOptions) strategy {
	if strings.EqualFold(opts.Module, "none") {
		return &flatStrategy{b: b}
	}
	return &moduleStrategy{b: b}
}

// unchangedShape is the answer for a trigger whose shape did not change:
// the trigger alone if it was edited since its last emit, nothing otherwise.
func (b *Builder) unchangedShape(rec *fileRecord) affected {
	if b.contentChangedSinceEmit(rec) {
		return affected{paths: []Path{rec.path}}
	}
	return affected{}
}

// wholeProject is the conservative answer: every emittable file edited since
// its last emit, plus the trigger.
func (b *Builder) wholeProject(trigger *fileRecord) affected {
	var paths []Path
	for _, name := range b.host.FileNames() {
		if name == trigger.path {
			continue
		}
		rec, ok := b.files.lookup(name)
		if !ok || rec.isNonEmittable {
			continue
		}
		if b.contentChangedSinceEmit(rec) {
			paths = append(paths, rec.path)
		}
	}
	paths = append(paths, trigger.path)
	return affected{paths: paths, shapeChanged: true}
}

// onlyTrigger is the answer for modes where a shape change never requires
// other files to re-emit.
func onlyTrigger(rec *fileRecord) affected {
	return affected{paths: []Path{rec.path}, shapeChanged: true}
}
