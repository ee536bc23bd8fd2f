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

// flatStrategy serves projects without a module system. There is no
// dependency information, so any shape change invalidates the project.
type flatStrategy struct {
	b *Builder
}

func (s *flatStrategy) name() string { return StrategyFlat }

func (s *flatStrategy) tracksReferences() bool { return false }

func (s *flatStrategy) filesAffectedBy(rec *fileRecord) affected {
	if !s.b.updateShapeSignature(rec) {
		return s.b.unchangedShape(rec)
	}
	// A bundle is re-emitted as a whole whichever input changed.
	if s.b.host.CompilerOptions().SingleOutput() {
		return onlyTrigger(rec)
	}
	return s.b.wholeProject(rec)
}
