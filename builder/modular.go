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

// moduleStrategy propagates shape changes along the reference graph.
type moduleStrategy struct {
	b *Builder
}

func (s *moduleStrategy) name() string { return StrategyModule }

func (s *moduleStrategy) tracksReferences() bool { return true }

func (s *moduleStrategy) filesAffectedBy(rec *fileRecord) affected {
	b := s.b
	if !b.updateShapeSignature(rec) {
		return b.unchangedShape(rec)
	}

	// Nothing imports a script or an ambient-only declaration file the way
	// the graph tracks, so its consumers are unknown.
	if !rec.isModule || rec.isAmbientOnly {
		return b.wholeProject(rec)
	}

	opts := b.host.CompilerOptions()
	if opts.IsolatedModules || opts.SingleOutput() {
		return onlyTrigger(rec)
	}

	return affected{paths: s.propagate(rec), shapeChanged: true}
}

// propagate walks referencedBy edges from trigger. Every reached file is
// affected; the walk only continues through files whose own shape changed,
// since a dependent with a stable shape shields its own dependents.
func (s *moduleStrategy) propagate(trigger *fileRecord) []Path {
	b := s.b
	visited := map[recordID]bool{trigger.id: true}
	queue := append([]recordID(nil), trigger.referencedBy...)

	var paths []Path
	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		rec := b.files.at(id)
		if rec == nil {
			// removed while we were walking
			continue
		}
		if !rec.isNonEmittable {
			paths = append(paths, rec.path)
		}
		if b.updateShapeSignature(rec) {
			queue = append(queue, rec.referencedBy...)
		}
	}
	return append(paths, trigger.path)
}
