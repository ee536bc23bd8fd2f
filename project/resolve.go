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
	"path"
	"strings"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/packagejson"
)

// sourceCandidates lists the files a specifier without a TypeScript
// extension may refer to, in the order tsc tries them.
func sourceCandidates(base string) []string {
	var out []string
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	switch ext {
	case ".js":
		out = append(out, stem+".ts", stem+".tsx", stem+".d.ts")
	case ".jsx":
		out = append(out, stem+".tsx")
	case ".mjs":
		out = append(out, stem+".mts", stem+".d.mts")
	case ".cjs":
		out = append(out, stem+".cts", stem+".d.cts")
	case ".ts", ".tsx", ".mts", ".cts", ".html", ".htm":
		out = append(out, base)
	}
	return append(out,
		base+".ts", base+".tsx", base+".d.ts",
		base+"/index.ts", base+"/index.tsx", base+"/index.d.ts")
}

// resolve maps a specifier found in from to the name of the file it refers
// to. The file need not be part of the project; exists decides.
func (p *Project) resolve(from *sourceFile, spec string, exists func(string) bool) (string, bool) {
	var base string
	switch {
	case isRelative(spec):
		base = path.Join(path.Dir(from.name), spec)
	case strings.HasPrefix(spec, "/"):
		// pages refer to modules from the served root
		if from.kind == kindHTML {
			base = path.Join(p.config.Dir, spec)
		} else {
			base = path.Clean(spec)
		}
	case strings.Contains(spec, "://"), strings.HasPrefix(spec, "data:"):
		return "", false
	default:
		return p.resolvePackage(path.Dir(from.name), spec, exists)
	}

	for _, candidate := range sourceCandidates(base) {
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// resolvePackage finds the declaration file of a bare specifier by walking
// up from dir through node_modules, then through node_modules/@types.
func (p *Project) resolvePackage(dir, spec string, exists func(string) bool) (string, bool) {
	name, subpath := splitSpecifier(spec)
	for _, pkg := range []string{name, typesPackage(name)} {
		for d := dir; ; d = path.Dir(d) {
			pkgDir := path.Join(d, "node_modules", pkg)
			if found, ok := p.resolveInPackage(pkgDir, subpath, exists); ok {
				return found, true
			}
			if d == "/" || d == "." || d == path.Dir(d) {
				break
			}
		}
	}
	return "", false
}

func (p *Project) resolveInPackage(pkgDir, subpath string, exists func(string) bool) (string, bool) {
	manifest := path.Join(pkgDir, "package.json")
	if p.fsys.Exists(manifest) {
		pkg, err := p.packages.GetOrLoad(manifest, func() (*packagejson.PackageJSON, error) {
			return packagejson.ParseFile(p.fsys, manifest)
		})
		if err != nil {
			p.logger.Debug("unreadable package.json", "file", manifest, "error", err)
		} else if entry, err := pkg.ResolveTypes(subpath); err == nil {
			if name := path.Join(pkgDir, entry); exists(name) {
				return name, true
			}
		}
	}

	base := pkgDir
	if subpath != "." {
		base = path.Join(pkgDir, subpath)
	}
	for _, candidate := range sourceCandidates(base) {
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// splitSpecifier splits "@scope/pkg/sub/path" into "@scope/pkg" and
// "./sub/path". The main entry is ".".
func splitSpecifier(spec string) (name, subpath string) {
	parts := strings.SplitN(spec, "/", 3)
	n := 1
	if strings.HasPrefix(spec, "@") && len(parts) > 1 {
		n = 2
	}
	if len(parts) <= n {
		return spec, "."
	}
	name = strings.Join(parts[:n], "/")
	return name, "./" + strings.TrimPrefix(spec, name+"/")
}

// typesPackage names the DefinitelyTyped package for name.
func typesPackage(name string) string {
	if scope, pkg, ok := strings.Cut(strings.TrimPrefix(name, "@"), "/"); ok && strings.HasPrefix(name, "@") {
		return "@types/" + scope + "__" + pkg
	}
	return "@types/" + name
}

// dependencyNames resolves every specifier and reference of sf to file
// names, keeping those exists accepts.
func (p *Project) dependencyNames(sf *sourceFile, exists func(string) bool) []string {
	var out []string
	for _, spec := range sf.info.specifiers {
		if name, ok := p.resolve(sf, spec, exists); ok {
			out = append(out, name)
		}
	}
	for _, ref := range sf.info.referencePaths {
		if name := path.Join(path.Dir(sf.name), ref); exists(name) {
			out = append(out, name)
		}
	}
	for _, ref := range sf.info.referenceTypes {
		if name, ok := p.resolvePackage(path.Dir(sf.name), ref, exists); ok {
			out = append(out, name)
		}
	}
	return out
}

// references resolves the dependencies of sf to project files.
func (p *Project) references(sf *sourceFile) []builder.Path {
	names := p.dependencyNames(sf, p.known)
	out := make([]builder.Path, 0, len(names))
	for _, name := range names {
		out = append(out, p.toPath(name))
	}
	return out
}

// isExternalDeclaration reports whether name is a declaration file shipped
// by a dependency. Those join the project when a project file imports them.
func isExternalDeclaration(name string) bool {
	kind, ok := kindOf(name)
	return ok && kind == kindDeclaration && strings.Contains(name, "/node_modules/")
}
