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

// SourceFile is the parsed representation of a project file, as far as the
// builder needs to see it.
type SourceFile struct {
	// Text is the raw file content.
	Text string
	// IsDeclarationFile is true for .d.ts files, whose text already is their shape.
	IsDeclarationFile bool
	// IsExternalModule is true when the file carries import or export syntax.
	IsExternalModule bool
	// IsAmbientModuleOnly is true when every top-level statement is an
	// ambient module declaration (declare module "x" { ... }).
	IsAmbientModuleOnly bool
}

// Artifact is one output file produced by emit.
type Artifact struct {
	Path               string
	Text               string
	WriteByteOrderMark bool
}

// EmitOutput is the result of emitting a single file.
type EmitOutput struct {
	Artifacts   []Artifact
	EmitSkipped bool
}

// CompilerOptions holds the project-wide modes that drive strategy selection.
type CompilerOptions struct {
	// Module is the module kind, e.g. "none", "commonjs", "esnext".
	// The flat strategy is used for "none".
	Module string
	// OutFile is set when all inputs are emitted into one combined output.
	OutFile string
	// IsolatedModules is set when every file must be emittable on its own.
	IsolatedModules bool
}

// SingleOutput reports whether the project compiles to one combined artifact.
func (o CompilerOptions) SingleOutput() bool {
	return o.OutFile != ""
}

// Host is the analysis layer the builder calls into. All methods are treated
// as synchronous and possibly expensive; the builder calls them as rarely as
// correctness allows.
type Host interface {
	// SourceFile resolves a file to its parsed representation.
	// Returns false when the file is deleted or cannot be parsed.
	SourceFile(path Path) (SourceFile, bool)

	// DeclarationEmit returns the declarations-only output text for a file.
	// An empty string is a valid result.
	DeclarationEmit(path Path) (string, bool)

	// Emit produces the full output artifacts for a file.
	Emit(path Path) EmitOutput

	// ReferencedFiles lists the statically known import and reference
	// targets of a file.
	ReferencedFiles(path Path) []Path

	// ScriptVersion returns the current content version of a file.
	ScriptVersion(path Path) string

	// HasMixedContent reports whether a file is tracked but never emitted.
	HasMixedContent(path Path) bool

	// CompilerOptions returns the project compiler modes.
	CompilerOptions() CompilerOptions

	// FileNames enumerates every file in the project.
	FileNames() []Path

	// ProjectVersion changes whenever the file set or any file content changes.
	ProjectVersion() string
}
