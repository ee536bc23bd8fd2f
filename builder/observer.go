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

// Observer receives counters from a Builder. Implementations must be cheap;
// they run inline with every builder operation.
type Observer interface {
	// ShapeChecked is called after every shape signature computation.
	ShapeChecked(changed bool)
	// ReferencesUpdated is called when a reference merge added or removed edges.
	ReferencesUpdated(added, removed int)
	// Affected is called with the size of every affected-file answer.
	Affected(strategy string, count int, shapeChanged bool)
	// Emitted is called after a file's artifacts were written.
	Emitted(path Path, artifacts int)
}

type nopObserver struct{}

func (nopObserver) ShapeChecked(bool) {}
func (nopObserver) ReferencesUpdated(int, int) {}
func (nopObserver) Affected(string, int, bool) {}
func (nopObserver) Emitted(Path, int) {}
