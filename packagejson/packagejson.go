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
// Package packagejson parses package.json files and finds the declaration
// file that types an import of a package.
package packagejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"bennypowers.dev/kiln/fs"
)

// ErrNotExported is returned when a subpath is not exported by the package.
var ErrNotExported = errors.New("not exported by package.json")

// errNoMatch is a conditions object without a matching key. Unlike an
// explicit null target it lets the caller try the next alternative.
var errNoMatch = errors.New("no matching condition")

// TypesConditions are the conditions active when resolving declarations.
// "default" always matches.
var TypesConditions = []string{"types", "import"}

// PackageJSON represents the subset of package.json that locates a
// package's entry points and their declarations.
type PackageJSON struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Main    string   `json:"main,omitempty"`
	Types   string   `json:"types,omitempty"`
	Typings string   `json:"typings,omitempty"`
	Exports *Exports `json:"exports,omitempty"`
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fsys fs.Reader, path string) (*PackageJSON, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

type targetKind int

const (
	targetNull targetKind = iota
	targetPath
	targetObject
	targetFallbacks
)

// target is one node of an exports tree: a path, an object of conditions
// or subpaths, an array of fallbacks, or null.
type target struct {
	kind targetKind
	path string
	// keys and children are parallel for objects and keep document order;
	// fallbacks only use children.
	keys     []string
	children []target
}

// Exports is a parsed "exports" field. Object keys keep the order they
// have in the file, since the first matching condition wins.
type Exports struct {
	root target
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Exports) UnmarshalJSON(data []byte) error {
	root, err := decodeTarget(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	e.root = root
	return nil
}

func decodeTarget(dec *json.Decoder) (target, error) {
	tok, err := dec.Token()
	if err != nil {
		return target{}, err
	}
	switch v := tok.(type) {
	case string:
		return target{kind: targetPath, path: v}, nil
	case json.Delim:
		t := target{kind: targetFallbacks}
		if v == '{' {
			t.kind = targetObject
		}
		for dec.More() {
			if t.kind == targetObject {
				key, err := dec.Token()
				if err != nil {
					return target{}, err
				}
				t.keys = append(t.keys, key.(string))
			}
			child, err := decodeTarget(dec)
			if err != nil {
				return target{}, err
			}
			t.children = append(t.children, child)
		}
		// closing delimiter
		if _, err := dec.Token(); err != nil {
			return target{}, err
		}
		return t, nil
	}
	// null, and booleans or numbers, which are not valid targets
	return target{kind: targetNull}, nil
}

// isSubpathMap reports whether an object maps subpaths rather than
// conditions. Subpath keys start with a dot.
func (t target) isSubpathMap() bool {
	return t.kind == targetObject && slices.ContainsFunc(t.keys, func(k string) bool {
		return strings.HasPrefix(k, ".")
	})
}

// Resolve returns the file subpath ("." or "./sub") maps to under
// conditions, without a leading "./".
func (e *Exports) Resolve(subpath string, conditions []string) (string, error) {
	root := e.root
	if !root.isSubpathMap() {
		if subpath != "." {
			return "", ErrNotExported
		}
		return finish(root.resolve(conditions, nil))
	}

	if !strings.Contains(subpath, "*") {
		if i := slices.Index(root.keys, subpath); i >= 0 {
			return finish(root.children[i].resolve(conditions, nil))
		}
	}

	// patterns: the longest prefix before the "*" wins
	best := -1
	var bestPrefix, star string
	for i, key := range root.keys {
		prefix, suffix, ok := strings.Cut(key, "*")
		if !ok || len(subpath) < len(prefix)+len(suffix) {
			continue
		}
		if !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) {
			continue
		}
		if best < 0 || len(prefix) > len(bestPrefix) {
			best, bestPrefix = i, prefix
			star = subpath[len(prefix) : len(subpath)-len(suffix)]
		}
	}
	if best < 0 {
		return "", ErrNotExported
	}
	return finish(root.children[best].resolve(conditions, &star))
}

func finish(p string, err error) (string, error) {
	if err != nil {
		return "", ErrNotExported
	}
	return p, nil
}

// resolve walks a target. star is the text a pattern key matched, to be
// substituted into the target.
func (t target) resolve(conditions []string, star *string) (string, error) {
	switch t.kind {
	case targetPath:
		p := t.path
		if star != nil {
			p = strings.ReplaceAll(p, "*", *star)
		}
		return trimDotSlash(p), nil
	case targetObject:
		for i, key := range t.keys {
			if key != "default" && !slices.Contains(conditions, key) {
				continue
			}
			p, err := t.children[i].resolve(conditions, star)
			if errors.Is(err, errNoMatch) {
				continue
			}
			return p, err
		}
		return "", errNoMatch
	case targetFallbacks:
		for _, child := range t.children {
			if p, err := child.resolve(conditions, star); err == nil {
				return p, nil
			}
		}
		return "", errNoMatch
	}
	return "", ErrNotExported
}

// ResolveExport resolves a subpath import ("." or "./sub") to its target
// file under conditions, without a leading "./". A package without
// "exports" exposes only "main".
func (pkg *PackageJSON) ResolveExport(subpath string, conditions []string) (string, error) {
	if pkg.Exports != nil {
		return pkg.Exports.Resolve(subpath, conditions)
	}
	if subpath == "." && pkg.Main != "" {
		return trimDotSlash(pkg.Main), nil
	}
	return "", ErrNotExported
}

// ResolveTypes resolves the declaration file a subpath import of the package
// is typed by. For the main entry, "types" and "typings" win; otherwise the
// exports map is consulted with TypesConditions, falling back to "main".
// JavaScript targets are mapped to their declaration file next to them.
func (pkg *PackageJSON) ResolveTypes(subpath string) (string, error) {
	if subpath == "." {
		if pkg.Types != "" {
			return trimDotSlash(pkg.Types), nil
		}
		if pkg.Typings != "" {
			return trimDotSlash(pkg.Typings), nil
		}
	}
	entry, err := pkg.ResolveExport(subpath, TypesConditions)
	if err != nil {
		return "", err
	}
	return declarationFor(entry), nil
}

// declarationFor maps an entry point to the declaration file that types it.
func declarationFor(target string) string {
	for _, ext := range []string{".d.ts", ".d.mts", ".d.cts", ".ts", ".tsx", ".mts", ".cts"} {
		if strings.HasSuffix(target, ext) {
			return target
		}
	}
	for js, dts := range map[string]string{".js": ".d.ts", ".mjs": ".d.mts", ".cjs": ".d.cts"} {
		if stem, ok := strings.CutSuffix(target, js); ok {
			return stem + dts
		}
	}
	return target + ".d.ts"
}

// trimDotSlash removes a leading "./" from a path.
func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
