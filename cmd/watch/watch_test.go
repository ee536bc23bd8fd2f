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
package watch

import (
	"slices"
	"testing"

	"bennypowers.dev/kiln/watch"
)

func TestIgnorePatterns(t *testing.T) {
	got := ignorePatterns("/app", "/app/dist", []string{"**/*.gen.ts"})
	want := append(slices.Clone(watch.DefaultIgnore), "dist", "**/*.gen.ts")
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// output outside the project needs no pattern
	got = ignorePatterns("/app", "/build/app", nil)
	if !slices.Equal(got, watch.DefaultIgnore) {
		t.Errorf("Expected only the defaults, got %v", got)
	}
	if &got[0] == &watch.DefaultIgnore[0] {
		t.Error("Expected the defaults to be copied")
	}
}
