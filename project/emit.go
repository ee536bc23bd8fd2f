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
package project

import (
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/kiln/builder"
)

// outputExtensions maps a source extension to its JavaScript and
// declaration output extensions. TSX keeps its JSX.
var outputExtensions = map[string][2]string{
	".ts":  {".js", ".d.ts"},
	".tsx": {".jsx", ".d.ts"},
	".mts": {".mjs", ".d.mts"},
	".cts": {".cjs", ".d.cts"},
}

// Emit implements builder.Host. Declaration files, pages and dependency
// declarations report EmitSkipped. With an outFile every file emits the
// whole bundle.
func (p *Project) Emit(pth builder.Path) builder.EmitOutput {
	sf, ok := p.files[pth]
	if !ok || !sf.emittable() {
		return builder.EmitOutput{EmitSkipped: true}
	}
	if out := p.config.OutFile(); out != "" {
		return p.emitBundle(out)
	}

	js, err := p.javascript(sf)
	if err != nil {
		p.logger.Warn("emit failed", "file", sf.name, "error", err)
		return builder.EmitOutput{EmitSkipped: true}
	}
	bom := p.config.CompilerOptions.EmitBOM
	exts := outputExtensions[path.Ext(sf.name)]
	artifacts := []builder.Artifact{{Path: p.outputName(sf.name, exts[0]), Text: js, WriteByteOrderMark: bom}}

	if p.config.CompilerOptions.Declaration {
		decl, err := p.declarationEmit(sf)
		if err != nil {
			p.logger.Warn("declaration emit failed", "file", sf.name, "error", err)
			return builder.EmitOutput{EmitSkipped: true}
		}
		artifacts = append(artifacts, builder.Artifact{Path: p.outputName(sf.name, exts[1]), Text: decl, WriteByteOrderMark: bom})
	}
	return builder.EmitOutput{Artifacts: artifacts}
}

// emitBundle concatenates every emittable file, in name order, into out.
func (p *Project) emitBundle(out string) builder.EmitOutput {
	var js, decl strings.Builder
	for _, pth := range p.names {
		sf := p.files[pth]
		if !sf.emittable() {
			continue
		}
		text, err := p.javascript(sf)
		if err != nil {
			p.logger.Warn("emit failed", "file", sf.name, "error", err)
			return builder.EmitOutput{EmitSkipped: true}
		}
		js.WriteString(text)
		if p.config.CompilerOptions.Declaration {
			d, err := p.declarationEmit(sf)
			if err != nil {
				p.logger.Warn("declaration emit failed", "file", sf.name, "error", err)
				return builder.EmitOutput{EmitSkipped: true}
			}
			decl.WriteString(d)
		}
	}

	bom := p.config.CompilerOptions.EmitBOM
	artifacts := []builder.Artifact{{Path: out, Text: js.String(), WriteByteOrderMark: bom}}
	if p.config.CompilerOptions.Declaration {
		stem := strings.TrimSuffix(out, path.Ext(out))
		artifacts = append(artifacts, builder.Artifact{Path: stem + ".d.ts", Text: decl.String(), WriteByteOrderMark: bom})
	}
	return builder.EmitOutput{Artifacts: artifacts}
}

// outputName is where the output of the source file name goes: below outDir
// mirroring the layout under rootDir, or next to the source.
func (p *Project) outputName(name, ext string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	outDir := p.config.OutDir()
	if outDir == "" {
		return stem + ext
	}
	rel, ok := strings.CutPrefix(stem, p.config.RootDir()+"/")
	if !ok {
		rel = path.Base(stem)
	}
	return path.Join(outDir, rel) + ext
}

func (p *Project) javascript(sf *sourceFile) (string, error) {
	tree, err := parse(sf.kind, sf.text)
	if err != nil {
		return "", err
	}
	defer tree.Close()
	return transpile(tree.RootNode(), sf.text), nil
}

// edit replaces src[start:end] with text.
type edit struct {
	start, end uint
	text       string
}

// eraser collects the edits that turn TypeScript into JavaScript. Syntax
// that only exists for the type checker is cut out; enums are rewritten
// into their runtime object.
type eraser struct {
	src   []byte
	edits []edit
}

// transpile erases the types of a parsed file. Files that only declare
// types come out empty.
func transpile(root *ts.Node, src []byte) string {
	e := &eraser{src: src}
	e.visit(root)
	return e.apply()
}

// erasedKinds are nodes removed together with everything below them.
var erasedKinds = map[string]bool{
	"type_annotation":           true,
	"type_parameters":           true,
	"type_arguments":            true,
	"asserts_annotation":        true,
	"type_predicate_annotation": true,
	"opting_type_annotation":    true,
	"accessibility_modifier":    true,
	"override_modifier":         true,
	"implements_clause":         true,
	"interface_declaration":     true,
	"type_alias_declaration":    true,
	"ambient_declaration":       true,
	"function_signature":        true,
	"abstract_method_signature": true,
	"index_signature":           true,
	"method_signature":          true,
}

func (e *eraser) cut(n *ts.Node) {
	e.edits = append(e.edits, edit{start: n.StartByte(), end: n.EndByte()})
}

// cutTokens removes the anonymous children of n that match one of tokens.
func (e *eraser) cutTokens(n *ts.Node, tokens ...string) {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if !c.IsNamed() && slices.Contains(tokens, c.Kind()) {
			e.cut(c)
		}
	}
}

func (e *eraser) visit(n *ts.Node) {
	kind := n.Kind()
	if erasedKinds[kind] {
		e.cut(n)
		return
	}

	switch kind {
	case "import_statement":
		if hasToken(n, "type") {
			e.cut(n)
			return
		}
		e.typeOnlySpecifiers(n)
		return

	case "export_statement":
		if hasToken(n, "type") {
			e.cut(n)
			return
		}
		if decl := n.ChildByFieldName("declaration"); decl != nil && erasedKinds[decl.Kind()] {
			e.cut(n)
			return
		}

	case "as_expression", "satisfies_expression":
		// keep the expression, drop "as T"
		if expr := n.NamedChild(0); expr != nil {
			e.edits = append(e.edits, edit{start: expr.EndByte(), end: n.EndByte()})
			e.visit(expr)
			return
		}

	case "non_null_expression", "optional_parameter", "variable_declarator":
		e.cutTokens(n, "!", "?")

	case "public_field_definition":
		if hasToken(n, "declare") || hasToken(n, "abstract") {
			e.cut(n)
			return
		}
		e.cutTokens(n, "readonly", "?", "!")

	case "required_parameter":
		e.cutTokens(n, "readonly")

	case "abstract_class_declaration":
		e.cutTokens(n, "abstract")

	case "method_definition":
		// overload signatures have no body
		if n.ChildByFieldName("body") == nil {
			e.cut(n)
			return
		}
		e.cutTokens(n, "?")

	case "class_heritage":
		// "implements" alone leaves nothing behind
		if n.NamedChildCount() == 1 && n.NamedChild(0).Kind() == "implements_clause" {
			e.cut(n)
			return
		}

	case "enum_declaration":
		if hasToken(n, "declare") {
			e.cut(n)
			return
		}
		e.edits = append(e.edits, edit{start: n.StartByte(), end: n.EndByte(), text: e.enum(n)})
		return
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		e.visit(n.Child(i))
	}
}

// typeOnlySpecifiers drops `type X` entries from the named imports of an
// import statement, and the statement itself when nothing else is imported.
func (e *eraser) typeOnlySpecifiers(stmt *ts.Node) {
	var clause, named *ts.Node
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		if c := stmt.NamedChild(i); c.Kind() == "import_clause" {
			clause = c
		}
	}
	if clause == nil {
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		if c := clause.NamedChild(i); c.Kind() == "named_imports" {
			named = c
		}
	}
	if named == nil {
		return
	}

	var kept []string
	dropped := false
	for i := uint(0); i < named.NamedChildCount(); i++ {
		spec := named.NamedChild(i)
		if spec.Kind() != "import_specifier" {
			continue
		}
		if hasToken(spec, "type") {
			dropped = true
			continue
		}
		kept = append(kept, spec.Utf8Text(e.src))
	}
	switch {
	case !dropped:
	case len(kept) == 0 && clause.NamedChildCount() == 1:
		e.cut(stmt)
	default:
		e.edits = append(e.edits, edit{
			start: named.StartByte(),
			end:   named.EndByte(),
			text:  "{ " + strings.Join(kept, ", ") + " }",
		})
	}
}

// enum renders the runtime object of an enum declaration.
func (e *eraser) enum(n *ts.Node) string {
	name := n.ChildByFieldName("name").Utf8Text(e.src)
	body := n.ChildByFieldName("body")

	var b strings.Builder
	fmt.Fprintf(&b, "var %s;\n(function (%s) {\n", name, name)
	next, prev := 0, ""
	for i := uint(0); body != nil && i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		var key, value string
		switch member.Kind() {
		case "enum_assignment":
			key = member.ChildByFieldName("name").Utf8Text(e.src)
			value = member.ChildByFieldName("value").Utf8Text(e.src)
		case "property_identifier", "string":
			key = member.Utf8Text(e.src)
		default:
			continue
		}
		key = strconv.Quote(strings.Trim(key, `"'`))

		switch {
		case value == "" && next >= 0:
			value = strconv.Itoa(next)
		case value == "":
			value = fmt.Sprintf("%s[%s] + 1", name, prev)
		}
		if v, err := strconv.Atoi(value); err == nil {
			next = v + 1
		} else {
			next = -1
		}

		if strings.HasPrefix(value, `"`) || strings.HasPrefix(value, "'") || strings.HasPrefix(value, "`") {
			// string members have no reverse mapping
			fmt.Fprintf(&b, "    %s[%s] = %s;\n", name, key, value)
		} else {
			fmt.Fprintf(&b, "    %s[%s[%s] = %s] = %s;\n", name, name, key, value, key)
		}
		prev = key
	}
	fmt.Fprintf(&b, "})(%s || (%s = {}));", name, name)
	return b.String()
}

// apply builds the output text. Edits nested inside an earlier edit are
// dropped, since the outer edit already covers them.
func (e *eraser) apply() string {
	slices.SortStableFunc(e.edits, func(a, b edit) int {
		if a.start != b.start {
			return int(a.start) - int(b.start)
		}
		// the wider edit first
		return int(b.end) - int(a.end)
	})

	var b strings.Builder
	b.Grow(len(e.src))
	pos := uint(0)
	for _, ed := range e.edits {
		if ed.start < pos {
			continue
		}
		b.Write(e.src[pos:ed.start])
		b.WriteString(ed.text)
		pos = ed.end
	}
	b.Write(e.src[pos:])
	return tidy(b.String())
}

// tidy drops lines that erasure left blank, keeping intentional blank lines
// of the original as single blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" || trimmed == ";" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	text := strings.TrimSpace(strings.Join(out, "\n"))
	if text == "" {
		return ""
	}
	return text + "\n"
}
