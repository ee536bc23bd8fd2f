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
	"embed"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

// fileKind is how a project file is parsed and emitted.
type fileKind int

const (
	kindTS fileKind = iota
	kindTSX
	kindDeclaration
	kindHTML
)

// kindOf classifies a file by name. The second result is false for files
// kiln does not handle.
func kindOf(name string) (fileKind, bool) {
	base := path.Base(name)
	for _, ext := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, ext) {
			return kindDeclaration, true
		}
	}
	switch path.Ext(base) {
	case ".ts", ".mts", ".cts":
		return kindTS, true
	case ".tsx":
		return kindTSX, true
	case ".html", ".htm":
		return kindHTML, true
	}
	return 0, false
}

var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTypescript()),
	ts.NewLanguage(tsTypescript.LanguageTSX()),
}

var (
	tsParserPool = sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(languages.typescript); err != nil {
				panic("failed to set TypeScript language: " + err.Error())
			}
			return parser
		},
	}

	tsxParserPool = sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(languages.tsx); err != nil {
				panic("failed to set TSX language: " + err.Error())
			}
			return parser
		},
	}
)

// parse parses text with the grammar for kind. The caller closes the tree.
func parse(kind fileKind, text []byte) (*ts.Tree, error) {
	pool := &tsParserPool
	if kind == kindTSX {
		pool = &tsxParserPool
	}
	parser := pool.Get().(*ts.Parser)
	defer func() {
		parser.Reset()
		pool.Put(parser)
	}()

	tree := parser.Parse(text, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	return tree, nil
}

// queries holds the compiled import query per grammar. A query is bound to
// the language it was compiled for, so TSX needs its own copy.
type queries struct {
	typescript *ts.Query
	tsx        *ts.Query
}

var (
	importQueries     queries
	importQueriesErr  error
	importQueriesOnce sync.Once
)

func loadImportQueries() (queries, error) {
	importQueriesOnce.Do(func() {
		data, err := queryFiles.ReadFile("queries/typescript/imports.scm")
		if err != nil {
			importQueriesErr = fmt.Errorf("failed to read import query: %w", err)
			return
		}
		q, qerr := ts.NewQuery(languages.typescript, string(data))
		if qerr != nil {
			importQueriesErr = fmt.Errorf("failed to parse import query: %w", qerr)
			return
		}
		qx, qerr := ts.NewQuery(languages.tsx, string(data))
		if qerr != nil {
			q.Close()
			importQueriesErr = fmt.Errorf("failed to parse TSX import query: %w", qerr)
			return
		}
		importQueries = queries{typescript: q, tsx: qx}
	})
	return importQueries, importQueriesErr
}

// parseInfo is what the project learns about a file from parsing it once
// per content version.
type parseInfo struct {
	// specifiers are module specifiers of imports, re-exports and dynamic
	// imports, in source order.
	specifiers []string
	// referencePaths are /// <reference path="..."/> targets.
	referencePaths []string
	// referenceTypes are /// <reference types="..."/> package names.
	referenceTypes []string
	isModule       bool
	ambientOnly    bool
}

var tripleSlash = regexp.MustCompile(`^///\s*<reference\s+(path|types)\s*=\s*["']([^"']+)["']`)

// analyze parses a script and extracts its references and top-level
// classification.
func analyze(kind fileKind, text []byte) (parseInfo, error) {
	if kind == kindHTML {
		return scanHTML(text)
	}

	tree, err := parse(kind, text)
	if err != nil {
		return parseInfo{}, err
	}
	defer tree.Close()
	root := tree.RootNode()

	specifiers, err := extractSpecifiers(kind, root, text, false)
	if err != nil {
		return parseInfo{}, err
	}
	info := parseInfo{specifiers: specifiers}

	ambient := 0
	statements := 0
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "comment":
			if m := tripleSlash.FindStringSubmatch(stmt.Utf8Text(text)); m != nil {
				if m[1] == "path" {
					info.referencePaths = append(info.referencePaths, m[2])
				} else {
					info.referenceTypes = append(info.referenceTypes, m[2])
				}
			}
			continue
		case "import_statement", "export_statement":
			info.isModule = true
		case "ambient_declaration":
			if isAmbientModule(stmt) {
				ambient++
			}
		}
		statements++
	}
	info.ambientOnly = kind == kindDeclaration && !info.isModule && statements > 0 && ambient == statements
	return info, nil
}

// isAmbientModule reports whether stmt is `declare module "name" { ... }`.
func isAmbientModule(stmt *ts.Node) bool {
	if stmt.NamedChildCount() == 0 {
		return false
	}
	mod := stmt.NamedChild(0)
	if mod.Kind() != "module" {
		return false
	}
	name := mod.ChildByFieldName("name")
	return name != nil && name.Kind() == "string"
}

// extractSpecifiers runs the import query over a parsed file.
func extractSpecifiers(kind fileKind, root *ts.Node, text []byte, dynamicOnly bool) ([]string, error) {
	qs, err := loadImportQueries()
	if err != nil {
		return nil, err
	}
	query := qs.typescript
	if kind == kindTSX {
		query = qs.tsx
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var specifiers []string
	matches := cursor.Matches(query, root, text)
	captureNames := query.CaptureNames()
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
				if !dynamicOnly {
					specifiers = append(specifiers, capture.Node.Utf8Text(text))
				}
			case "dynamicImport.spec":
				specifiers = append(specifiers, capture.Node.Utf8Text(text))
			}
		}
	}
	return specifiers, nil
}

// extractImports parses inline script text and returns its specifiers.
func extractImports(text []byte, dynamicOnly bool) ([]string, error) {
	tree, err := parse(kindTS, text)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return extractSpecifiers(kindTS, tree.RootNode(), text, dynamicOnly)
}
