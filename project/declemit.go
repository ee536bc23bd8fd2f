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
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/kiln/builder"
)

// DefaultDeclarationCacheSize bounds the declaration emit cache.
const DefaultDeclarationCacheSize = 1024

// declKey identifies one content version of a file. The digest changes
// with the text, so stale entries are never hit and simply age out.
type declKey struct {
	path   builder.Path
	digest string
}

func newDeclarationCache(size int) (*lru.Cache[declKey, string], error) {
	if size <= 0 {
		size = DefaultDeclarationCacheSize
	}
	return lru.New[declKey, string](size)
}

// declarationEmit returns the public shape of sf.
func (p *Project) declarationEmit(sf *sourceFile) (string, error) {
	key := declKey{path: sf.path, digest: sf.digest}
	if text, ok := p.decls.Get(key); ok {
		return text, nil
	}

	tree, err := parse(sf.kind, sf.text)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	text := declarations(tree.RootNode(), sf.text, sf.info.isModule)
	p.decls.Add(key, text)
	return text, nil
}

// declarations renders what other files can observe of a script: exported
// declarations without implementation, imports and re-exports, ambient
// declarations and local types. Whitespace is normalized so that formatting
// edits keep the output stable.
//
// A function without a return type annotation keeps its body, since its
// inferred type may depend on it. The same goes for untyped initializers.
// Local declarations exported by name, through export { x } or
// export default x, keep their shape as well.
func declarations(root *ts.Node, src []byte, isModule bool) string {
	var exported map[string]bool
	if isModule {
		exported = exportedLocals(root, src)
	}
	var lines []string
	for i := uint(0); i < root.NamedChildCount(); i++ {
		if s := statementShape(root.NamedChild(i), src, isModule, exported); s != "" {
			lines = append(lines, squash(s))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func statementShape(stmt *ts.Node, src []byte, isModule bool, exported map[string]bool) string {
	switch stmt.Kind() {
	case "comment":
		return ""
	case "import_statement", "ambient_declaration":
		return stmt.Utf8Text(src)
	case "export_statement":
		return exportShape(stmt, src)
	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		// exported signatures may name local types
		return stmt.Utf8Text(src)
	}
	if isModule {
		for _, name := range declaredNames(stmt, src) {
			if exported[name] {
				return declarationShape(stmt, src)
			}
		}
		return ""
	}
	// top-level declarations of a script are global
	return declarationShape(stmt, src)
}

func exportShape(stmt *ts.Node, src []byte) string {
	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		shape := declarationShape(decl, src)
		if shape == "" {
			return ""
		}
		return string(src[stmt.StartByte():decl.StartByte()]) + shape
	}
	if value := stmt.ChildByFieldName("value"); value != nil {
		return "export default " + valueShape(value, src) + ";"
	}
	return stmt.Utf8Text(src)
}

// exportedLocals collects the local names a module exports without
// declaring them in the export statement itself. Re-exports from other
// modules are left out; their shape is the imported file's.
func exportedLocals(root *ts.Node, src []byte) map[string]bool {
	names := make(map[string]bool)
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt.Kind() != "export_statement" || stmt.ChildByFieldName("source") != nil {
			continue
		}
		if value := stmt.ChildByFieldName("value"); value != nil {
			if value.Kind() == "identifier" {
				names[value.Utf8Text(src)] = true
			}
			continue
		}
		for j := uint(0); j < stmt.NamedChildCount(); j++ {
			clause := stmt.NamedChild(j)
			if clause.Kind() != "export_clause" {
				continue
			}
			for k := uint(0); k < clause.NamedChildCount(); k++ {
				if name := clause.NamedChild(k).ChildByFieldName("name"); name != nil {
					names[name.Utf8Text(src)] = true
				}
			}
		}
	}
	return names
}

// declaredNames lists the bindings a top-level statement declares.
func declaredNames(stmt *ts.Node, src []byte) []string {
	switch stmt.Kind() {
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration":
		if name := stmt.ChildByFieldName("name"); name != nil {
			return []string{name.Utf8Text(src)}
		}
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := uint(0); i < stmt.NamedChildCount(); i++ {
			if d := stmt.NamedChild(i); d.Kind() == "variable_declarator" {
				if name := d.ChildByFieldName("name"); name != nil {
					names = append(names, bindingNames(name, src)...)
				}
			}
		}
		return names
	}
	return nil
}

// bindingNames returns the identifiers bound by a name or destructuring
// pattern. Default values inside a pattern may add extra names, which only
// widens what counts as exported.
func bindingNames(n *ts.Node, src []byte) []string {
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{n.Utf8Text(src)}
	}
	var names []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		names = append(names, bindingNames(n.NamedChild(i), src)...)
	}
	return names
}

func declarationShape(n *ts.Node, src []byte) string {
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration":
		if head, ok := signature(n, src); ok {
			return head + ";"
		}
		return n.Utf8Text(src)

	case "class_declaration", "abstract_class_declaration":
		return classShape(n, src)

	case "lexical_declaration", "variable_declaration":
		var decls []string
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c.Kind() == "variable_declarator" {
				decls = append(decls, declaratorShape(c, src))
			}
		}
		if len(decls) == 0 {
			return ""
		}
		return n.Child(0).Utf8Text(src) + " " + strings.Join(decls, ", ") + ";"

	case "expression_statement":
		// namespaces parse as expression statements
		if n.NamedChildCount() > 0 && n.NamedChild(0).Kind() == "internal_module" {
			return n.Utf8Text(src)
		}
		return ""

	case "interface_declaration", "type_alias_declaration", "enum_declaration",
		"internal_module", "module", "function_signature", "ambient_declaration":
		return n.Utf8Text(src)
	}
	return ""
}

// signature returns the text of a function-like node up to its body. It
// fails for nodes without a body or without a declared return type.
func signature(n *ts.Node, src []byte) (string, bool) {
	body := n.ChildByFieldName("body")
	if body == nil || n.ChildByFieldName("return_type") == nil {
		return "", false
	}
	return head(n, body, src), true
}

// head returns the source of n up to the start of child.
func head(n, child *ts.Node, src []byte) string {
	return strings.TrimSpace(string(src[n.StartByte():child.StartByte()]))
}

func classShape(n *ts.Node, src []byte) string {
	body := n.ChildByFieldName("body")
	if body == nil {
		return n.Utf8Text(src)
	}
	var b strings.Builder
	b.WriteString(head(n, body, src))
	b.WriteString(" {")
	for i := uint(0); i < body.NamedChildCount(); i++ {
		if m := memberShape(body.NamedChild(i), src); m != "" {
			b.WriteString(" ")
			b.WriteString(m)
		}
	}
	b.WriteString(" }")
	return b.String()
}

func memberShape(m *ts.Node, src []byte) string {
	switch m.Kind() {
	case "comment", "class_static_block":
		return ""
	}
	if isPrivateMember(m, src) {
		return ""
	}

	switch m.Kind() {
	case "method_definition":
		body := m.ChildByFieldName("body")
		if body == nil {
			return m.Utf8Text(src)
		}
		name := m.ChildByFieldName("name")
		// constructors and setters have no return type to infer
		if m.ChildByFieldName("return_type") != nil ||
			(name != nil && name.Utf8Text(src) == "constructor") ||
			hasToken(m, "set") {
			return head(m, body, src) + ";"
		}
		return m.Utf8Text(src)

	case "public_field_definition":
		value := m.ChildByFieldName("value")
		if value == nil || m.ChildByFieldName("type") == nil {
			return withSemicolon(m.Utf8Text(src))
		}
		return strings.TrimSpace(strings.TrimSuffix(head(m, value, src), "=")) + ";"
	}
	return m.Utf8Text(src)
}

func isPrivateMember(m *ts.Node, src []byte) bool {
	if name := m.ChildByFieldName("name"); name != nil && name.Kind() == "private_property_identifier" {
		return true
	}
	for i := uint(0); i < m.NamedChildCount(); i++ {
		c := m.NamedChild(i)
		if c.Kind() == "accessibility_modifier" && c.Utf8Text(src) == "private" {
			return true
		}
	}
	return false
}

func declaratorShape(d *ts.Node, src []byte) string {
	value := d.ChildByFieldName("value")
	if value == nil {
		return d.Utf8Text(src)
	}
	if typ := d.ChildByFieldName("type"); typ != nil {
		return strings.TrimSpace(string(src[d.StartByte():typ.EndByte()]))
	}
	name := d.ChildByFieldName("name")
	if name == nil {
		return d.Utf8Text(src)
	}
	return name.Utf8Text(src) + " = " + valueShape(value, src)
}

// valueShape strips the body of an annotated function expression and keeps
// any other value as written.
func valueShape(v *ts.Node, src []byte) string {
	switch v.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function":
		if sig, ok := signature(v, src); ok {
			return sig
		}
	}
	return v.Utf8Text(src)
}

// hasToken reports whether n has an anonymous child token with the given text.
func hasToken(n *ts.Node, token string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Kind() == token {
			return true
		}
	}
	return false
}

func withSemicolon(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ";") {
		return s
	}
	return s + ";"
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
