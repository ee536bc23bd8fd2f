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
	"slices"
	"strconv"
	"testing"
)

// fakeFile is one file of a fakeHost project.
type fakeFile struct {
	text        string
	decl        string
	declFile    bool
	module      bool
	ambientOnly bool
	mixed       bool
	refs        []Path
	version     int
}

// fakeHost is an in-memory Host whose answers are set directly by tests.
type fakeHost struct {
	files          map[Path]*fakeFile
	order          []Path
	opts           CompilerOptions
	projectVersion int
	unresolvable   map[Path]bool

	declCalls map[Path]int
	refCalls  map[Path]int
	emitCalls map[Path]int
}

func newFakeHost(opts CompilerOptions) *fakeHost {
	return &fakeHost{
		files:        make(map[Path]*fakeFile),
		opts:         opts,
		unresolvable: make(map[Path]bool),
		declCalls:    make(map[Path]int),
		refCalls:     make(map[Path]int),
		emitCalls:    make(map[Path]int),
	}
}

// module adds an ES module with the given declaration output and references.
func (h *fakeHost) module(name, decl string, refs ...string) {
	f := &fakeFile{text: decl + "\n// body", decl: decl, module: true}
	for _, r := range refs {
		f.refs = append(f.refs, Path(r))
	}
	h.add(name, f)
}

func (h *fakeHost) add(name string, f *fakeFile) {
	p := Path(name)
	if _, exists := h.files[p]; !exists {
		h.order = append(h.order, p)
	}
	f.version++
	h.files[p] = f
	h.projectVersion++
}

// edit changes a file's text and bumps its script version.
func (h *fakeHost) edit(name string, change func(f *fakeFile)) {
	f := h.files[Path(name)]
	change(f)
	f.version++
	h.projectVersion++
}

// setDecl changes what declaration emit returns for a file without touching
// its text, as happens when an inferred type comes from another file.
func (h *fakeHost) setDecl(name, decl string) {
	h.files[Path(name)].decl = decl
}

func (h *fakeHost) remove(name string) {
	p := Path(name)
	delete(h.files, p)
	h.order = slices.DeleteFunc(h.order, func(o Path) bool { return o == p })
	h.projectVersion++
}

func (h *fakeHost) SourceFile(path Path) (SourceFile, bool) {
	f, ok := h.files[path]
	if !ok || h.unresolvable[path] {
		return SourceFile{}, false
	}
	return SourceFile{
		Text:                f.text,
		IsDeclarationFile:   f.declFile,
		IsExternalModule:    f.module,
		IsAmbientModuleOnly: f.ambientOnly,
	}, true
}

func (h *fakeHost) DeclarationEmit(path Path) (string, bool) {
	h.declCalls[path]++
	f, ok := h.files[path]
	if !ok {
		return "", false
	}
	return f.decl, true
}

func (h *fakeHost) Emit(path Path) EmitOutput {
	h.emitCalls[path]++
	f, ok := h.files[path]
	if !ok || f.declFile {
		return EmitOutput{EmitSkipped: true}
	}
	return EmitOutput{Artifacts: []Artifact{{Path: string(path) + ".js", Text: f.text}}}
}

func (h *fakeHost) ReferencedFiles(path Path) []Path {
	h.refCalls[path]++
	f, ok := h.files[path]
	if !ok {
		return nil
	}
	return slices.Clone(f.refs)
}

func (h *fakeHost) ScriptVersion(path Path) string {
	f, ok := h.files[path]
	if !ok {
		return ""
	}
	return strconv.Itoa(f.version)
}

func (h *fakeHost) HasMixedContent(path Path) bool {
	f, ok := h.files[path]
	return ok && f.mixed
}

func (h *fakeHost) CompilerOptions() CompilerOptions { return h.opts }

func (h *fakeHost) FileNames() []Path { return slices.Clone(h.order) }

func (h *fakeHost) ProjectVersion() string { return strconv.Itoa(h.projectVersion) }

// recordingSink collects every artifact written through it.
type recordingSink struct {
	written []Artifact
}

func (s *recordingSink) write(a Artifact) error {
	s.written = append(s.written, a)
	return nil
}

// warm brings every file to a steady state: shape computed and emitted.
func warm(t *testing.T, b *Builder, h *fakeHost) {
	t.Helper()
	sink := &recordingSink{}
	for _, p := range h.FileNames() {
		if _, err := b.FilesAffectedBy(p); err != nil {
			t.Fatalf("FilesAffectedBy(%s) failed: %v", p, err)
		}
		if _, err := b.EmitFile(p, sink.write, false); err != nil {
			t.Fatalf("EmitFile(%s) failed: %v", p, err)
		}
	}
}

func sortedPaths(paths []Path) []Path {
	out := slices.Clone(paths)
	slices.Sort(out)
	return out
}

func assertPaths(t *testing.T, got []Path, want ...Path) {
	t.Helper()
	g := sortedPaths(got)
	w := sortedPaths(want)
	if !slices.Equal(g, w) {
		t.Errorf("expected files %v, got %v", w, g)
	}
}

func assertGraph(t *testing.T, b *Builder) {
	t.Helper()
	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("reference graph invariants broken:\n%v", err)
	}
}
