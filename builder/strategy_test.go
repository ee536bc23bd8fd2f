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
	"testing"
)

// chain builds c.ts -> b.ts -> a.ts, where the arrow means "imports".
func chain(opts CompilerOptions) *fakeHost {
	h := newFakeHost(opts)
	h.module("/p/a.ts", "export declare const a: number;")
	h.module("/p/b.ts", "export declare const b: number;", "/p/a.ts")
	h.module("/p/c.ts", "export declare const c: number;", "/p/b.ts")
	return h
}

func changeShape(h *fakeHost, name, decl string) {
	h.edit(name, func(f *fakeFile) {
		f.decl = decl
		f.text = decl + "\n// body"
	})
}

func affectedBy(t *testing.T, b *Builder, path Path) []Path {
	t.Helper()
	got, err := b.FilesAffectedBy(path)
	if err != nil {
		t.Fatalf("FilesAffectedBy(%s) failed: %v", path, err)
	}
	return got
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"none", StrategyFlat},
		{"None", StrategyFlat},
		{"", StrategyModule},
		{"commonjs", StrategyModule},
		{"esnext", StrategyModule},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			b := New(newFakeHost(CompilerOptions{Module: tt.module}), nil)
			if got := b.Strategy(); got != tt.want {
				t.Errorf("Expected strategy %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFilesAffectedByUntrackedFile(t *testing.T) {
	for _, module := range []string{"none", "esnext"} {
		t.Run(module, func(t *testing.T) {
			b := New(chain(CompilerOptions{Module: module}), nil)
			_, err := b.FilesAffectedBy("/p/nope.ts")
			if !errors.Is(err, ErrNotTracked) {
				t.Errorf("Expected ErrNotTracked, got %v", err)
			}
		})
	}
}

func TestFlatStrategy(t *testing.T) {
	t.Run("unchanged shape", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "none"})
		b := New(h, nil)
		warm(t, b, h)

		h.edit("/p/a.ts", func(f *fakeFile) { f.text += "\n// more body" })
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts")

		sink := &recordingSink{}
		if _, err := b.EmitFile("/p/a.ts", sink.write, false); err != nil {
			t.Fatal(err)
		}
		assertPaths(t, affectedBy(t, b, "/p/a.ts"))
	})

	t.Run("shape change invalidates the project", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "none"})
		h.add("/p/page.html", &fakeFile{text: "<script></script>", mixed: true})
		b := New(h, nil)
		warm(t, b, h)

		h.edit("/p/c.ts", func(f *fakeFile) { f.text += "\n// edited" })
		h.edit("/p/page.html", func(f *fakeFile) { f.text = "<script>1</script>" })
		changeShape(h, "/p/a.ts", "export declare const a: string;")

		// b.ts is up to date and page.html never emits
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts", "/p/c.ts")
	})

	t.Run("single output", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "none", OutFile: "bundle.js"})
		b := New(h, nil)
		warm(t, b, h)

		h.edit("/p/c.ts", func(f *fakeFile) { f.text += "\n// edited" })
		changeShape(h, "/p/a.ts", "export declare const a: string;")
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts")
	})
}

func TestModuleStrategyPropagation(t *testing.T) {
	t.Run("body edit", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "esnext"})
		b := New(h, nil)
		warm(t, b, h)

		h.edit("/p/a.ts", func(f *fakeFile) { f.text += "\n// more body" })
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts")

		sink := &recordingSink{}
		if _, err := b.EmitFile("/p/a.ts", sink.write, false); err != nil {
			t.Fatal(err)
		}
		assertPaths(t, affectedBy(t, b, "/p/a.ts"))
	})

	t.Run("stable dependent stops the walk", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "esnext"})
		b := New(h, nil)
		warm(t, b, h)

		changeShape(h, "/p/a.ts", "export declare const a: string;")
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts", "/p/b.ts")
	})

	t.Run("changed dependent continues the walk", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "esnext"})
		b := New(h, nil)
		warm(t, b, h)

		changeShape(h, "/p/a.ts", "export declare const a: string;")
		// b.ts re-exports an inferred type from a.ts
		h.setDecl("/p/b.ts", "export declare const b: string;")
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts", "/p/b.ts", "/p/c.ts")
	})

	t.Run("unresolvable dependent counts as changed", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "esnext"})
		b := New(h, nil)
		warm(t, b, h)

		h.unresolvable["/p/b.ts"] = true
		changeShape(h, "/p/a.ts", "export declare const a: string;")
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts", "/p/b.ts", "/p/c.ts")
	})

	t.Run("cycle", func(t *testing.T) {
		h := newFakeHost(CompilerOptions{Module: "esnext"})
		h.module("/p/a.ts", "export declare const a: number;", "/p/b.ts")
		h.module("/p/b.ts", "export declare const b: number;", "/p/a.ts")
		b := New(h, nil)
		warm(t, b, h)

		changeShape(h, "/p/a.ts", "export declare const a: string;")
		h.setDecl("/p/b.ts", "export declare const b: string;")
		got := affectedBy(t, b, "/p/a.ts")
		if len(got) != 2 {
			t.Errorf("Expected each file of the cycle once, got %v", got)
		}
		assertPaths(t, got, "/p/a.ts", "/p/b.ts")
	})

	t.Run("non-emittable dependent is walked but not listed", func(t *testing.T) {
		h := newFakeHost(CompilerOptions{Module: "esnext"})
		h.module("/p/a.ts", "export declare const a: number;")
		h.add("/p/b.vue", &fakeFile{
			text:   "<script>export const b = 1</script>",
			decl:   "export declare const b: number;",
			module: true,
			mixed:  true,
			refs:   []Path{"/p/a.ts"},
		})
		h.module("/p/c.ts", "export declare const c: number;", "/p/b.vue")
		b := New(h, nil)
		warm(t, b, h)

		changeShape(h, "/p/a.ts", "export declare const a: string;")
		h.setDecl("/p/b.vue", "export declare const b: string;")
		assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts", "/p/c.ts")
	})
}

func TestModuleStrategyFallbacks(t *testing.T) {
	t.Run("script falls back to the whole project", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "esnext"})
		h.add("/p/global.ts", &fakeFile{text: "var g = 1", decl: "declare var g: number;"})
		b := New(h, nil)
		warm(t, b, h)

		h.edit("/p/c.ts", func(f *fakeFile) { f.text += "\n// edited" })
		h.edit("/p/global.ts", func(f *fakeFile) {
			f.text = "var g = ''"
			f.decl = "declare var g: string;"
		})
		assertPaths(t, affectedBy(t, b, "/p/global.ts"), "/p/global.ts", "/p/c.ts")
	})

	t.Run("ambient-only declarations fall back to the whole project", func(t *testing.T) {
		h := chain(CompilerOptions{Module: "esnext"})
		h.add("/p/shims.d.ts", &fakeFile{
			text:        `declare module "x" { export const x: number; }`,
			declFile:    true,
			ambientOnly: true,
		})
		b := New(h, nil)
		warm(t, b, h)

		h.edit("/p/b.ts", func(f *fakeFile) { f.text += "\n// edited" })
		h.edit("/p/shims.d.ts", func(f *fakeFile) {
			f.text = `declare module "x" { export const x: string; }`
		})
		assertPaths(t, affectedBy(t, b, "/p/shims.d.ts"), "/p/shims.d.ts", "/p/b.ts")
	})

	for name, opts := range map[string]CompilerOptions{
		"isolated modules": {Module: "esnext", IsolatedModules: true},
		"single output":    {Module: "amd", OutFile: "bundle.js"},
	} {
		t.Run(name+" affects only the trigger", func(t *testing.T) {
			h := chain(opts)
			b := New(h, nil)
			warm(t, b, h)

			changeShape(h, "/p/a.ts", "export declare const a: string;")
			h.setDecl("/p/b.ts", "export declare const b: string;")
			assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts")
		})
	}
}

func TestFilesAffectedByColdStart(t *testing.T) {
	h := chain(CompilerOptions{Module: "esnext"})
	b := New(h, nil)

	// nothing has been observed yet, so every shape counts as changed
	assertPaths(t, affectedBy(t, b, "/p/a.ts"), "/p/a.ts", "/p/b.ts", "/p/c.ts")
	assertGraph(t, b)
}

type countingObserver struct {
	shapeChecks, shapeChanges int
	edgesAdded, edgesRemoved  int
	queries                   map[string]int
	emitted                   map[Path]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{queries: make(map[string]int), emitted: make(map[Path]int)}
}

func (o *countingObserver) ShapeChecked(changed bool) {
	o.shapeChecks++
	if changed {
		o.shapeChanges++
	}
}

func (o *countingObserver) ReferencesUpdated(added, removed int) {
	o.edgesAdded += added
	o.edgesRemoved += removed
}

func (o *countingObserver) Affected(strategy string, count int, shapeChanged bool) {
	o.queries[strategy]++
}

func (o *countingObserver) Emitted(path Path, artifacts int) {
	o.emitted[path] += artifacts
}

func TestObserverCounts(t *testing.T) {
	h := chain(CompilerOptions{Module: "esnext"})
	obs := newCountingObserver()
	b := New(h, nil).WithObserver(obs)
	warm(t, b, h)

	if obs.edgesAdded != 2 || obs.edgesRemoved != 0 {
		t.Errorf("Expected 2 edges added, got +%d -%d", obs.edgesAdded, obs.edgesRemoved)
	}
	if obs.queries[StrategyModule] != 3 {
		t.Errorf("Expected 3 affected queries, got %d", obs.queries[StrategyModule])
	}
	if len(obs.emitted) != 3 {
		t.Errorf("Expected 3 emitted files, got %v", obs.emitted)
	}
	if obs.shapeChecks == 0 || obs.shapeChanges == 0 {
		t.Errorf("Expected shape checks to be reported, got %d/%d", obs.shapeChanges, obs.shapeChecks)
	}

	h.edit("/p/c.ts", func(f *fakeFile) { f.refs = nil })
	b.OnProjectUpdateGraph()
	if obs.edgesRemoved != 1 {
		t.Errorf("Expected 1 edge removed, got %d", obs.edgesRemoved)
	}
}
