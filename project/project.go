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
	"context"
	"errors"
	iofs "io/fs"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/packagejson"
)

// Options configures a Project.
type Options struct {
	// Jobs bounds how many files are read and parsed at once during a scan.
	// Zero means GOMAXPROCS.
	Jobs int
	// CaseInsensitive folds file identities to lower case, for file systems
	// that do.
	CaseInsensitive bool
	// DeclarationCacheSize bounds the declaration emit cache.
	DeclarationCacheSize int
	Logger               *slog.Logger
}

// sourceFile is one file of the project at its current content version.
type sourceFile struct {
	name    string
	path    builder.Path
	kind    fileKind
	text    []byte
	digest  string
	version int
	info    parseInfo
	// external files are dependency declarations pulled in by imports.
	external bool
}

func (sf *sourceFile) emittable() bool {
	return !sf.external && (sf.kind == kindTS || sf.kind == kindTSX)
}

// Project is a TypeScript project on a file system. It implements
// builder.Host.
//
// A Project is not safe for concurrent use.
type Project struct {
	fsys     fs.Reader
	config   *Config
	opts     Options
	logger   *slog.Logger
	files    map[builder.Path]*sourceFile
	names    []builder.Path
	version  int
	// scripts is the last script version handed out. Versions are never
	// reused, even for a file that is removed and added again.
	scripts  int
	decls    *lru.Cache[declKey, string]
	packages packagejson.Cache
}

var _ builder.Host = (*Project)(nil)

// Load reads the project configured by the tsconfig at configPath (a file or
// a directory holding tsconfig.json) and parses every file it includes.
func Load(ctx context.Context, fsys fs.Reader, configPath string, opts Options) (*Project, error) {
	cfg, err := LoadConfig(fsys, configPath)
	if err != nil {
		return nil, err
	}
	decls, err := newDeclarationCache(opts.DeclarationCacheSize)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Project{
		fsys:     fsys,
		config:   cfg,
		opts:     opts,
		logger:   logger,
		files:    make(map[builder.Path]*sourceFile),
		decls:    decls,
		packages: packagejson.NewMemoryCache(),
	}
	if err := p.Rescan(ctx); err != nil {
		return nil, err
	}
	logger.Info("project loaded", "config", cfg.Path, "files", len(p.names))
	return p, nil
}

// Config returns the project configuration.
func (p *Project) Config() *Config {
	return p.config
}

// Path returns the identity of the file with the given name. Relative names
// are resolved against the config directory.
func (p *Project) Path(name string) builder.Path {
	return p.toPath(name)
}

// Name returns the file name behind a project identity.
func (p *Project) Name(pth builder.Path) (string, bool) {
	sf, ok := p.files[pth]
	if !ok {
		return "", false
	}
	return sf.name, true
}

// Includes reports whether the file with the given name belongs to the
// project by configuration, whether or not it exists yet.
func (p *Project) Includes(name string) bool {
	name = p.absName(name)
	rel, ok := strings.CutPrefix(name, p.config.Dir+"/")
	if !ok {
		return false
	}
	return p.config.Matches(rel)
}

func (p *Project) toPath(name string) builder.Path {
	return builder.ToPath(name, p.config.Dir, !p.opts.CaseInsensitive)
}

func (p *Project) absName(name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(p.config.Dir, name)
}

func (p *Project) known(name string) bool {
	_, ok := p.files[p.toPath(name)]
	return ok
}

// Rescan walks the project directory again: new files are added, vanished
// files removed and edited files re-read.
func (p *Project) Rescan(ctx context.Context) error {
	names, err := p.walk()
	if err != nil {
		return err
	}
	loaded, err := p.readAll(ctx, names)
	if err != nil {
		return err
	}

	changed := false
	seen := make(map[builder.Path]bool, len(loaded))
	for _, sf := range loaded {
		seen[sf.path] = true
		if p.put(sf) {
			changed = true
		}
	}
	for pth, sf := range p.files {
		if !sf.external && !seen[pth] {
			delete(p.files, pth)
			changed = true
		}
	}
	if p.syncExternal() {
		changed = true
	}
	if changed || p.names == nil {
		p.bump()
	}
	return nil
}

// Refresh re-reads one file after it was created, written or deleted. It
// reports whether the project changed.
func (p *Project) Refresh(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name = p.absName(name)
	if path.Base(name) == "package.json" {
		return p.refreshManifest(name), nil
	}
	existing, tracked := p.files[p.toPath(name)]
	if !p.fsys.Exists(name) {
		return p.Remove(name), nil
	}
	if !tracked && !p.Includes(name) {
		return false, nil
	}

	sf, err := p.readFile(name)
	if err != nil {
		return false, err
	}
	if tracked {
		sf.external = existing.external
	}
	if !p.put(sf) {
		return false, nil
	}
	p.syncExternal()
	p.bump()
	return true, nil
}

// Remove drops a file from the project. It reports whether the file was
// part of it.
func (p *Project) Remove(name string) bool {
	pth := p.toPath(p.absName(name))
	if _, ok := p.files[pth]; !ok {
		return false
	}
	delete(p.files, pth)
	p.syncExternal()
	p.bump()
	return true
}

func (p *Project) bump() {
	p.version++
	p.names = p.names[:0]
	for pth := range p.files {
		p.names = append(p.names, pth)
	}
	slices.Sort(p.names)
}

// put stores sf, keeping the current version when the content did not
// change. It reports whether anything changed.
func (p *Project) put(sf *sourceFile) bool {
	existing, ok := p.files[sf.path]
	if ok && existing.digest == sf.digest {
		return false
	}
	p.stamp(sf)
	p.files[sf.path] = sf
	return true
}

func (p *Project) stamp(sf *sourceFile) {
	p.scripts++
	sf.version = p.scripts
}

// refreshManifest handles an edit of a package.json. The edit can move the
// declarations a package resolves to, which changes the dependency
// declarations in the project, the references of importing files, or both.
// Files whose references moved get a new script version so that the
// builder resolves them again.
func (p *Project) refreshManifest(name string) bool {
	before := make(map[builder.Path][]builder.Path, len(p.files))
	for pth, sf := range p.files {
		before[pth] = p.references(sf)
	}
	p.packages.Invalidate(name)
	changed := p.syncExternal()
	for pth, sf := range p.files {
		refs, ok := before[pth]
		if ok && !slices.Equal(refs, p.references(sf)) {
			p.stamp(sf)
			changed = true
		}
	}
	if changed {
		p.bump()
	}
	p.logger.Debug("package manifest refreshed", "file", name, "changed", changed)
	return changed
}

// walk lists the files the configuration includes.
func (p *Project) walk() ([]string, error) {
	root := p.config.Dir
	var names []string
	err := iofs.WalkDir(p.fsys, root, func(name string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name != root && (d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".")) {
				return iofs.SkipDir
			}
			return nil
		}
		if rel, ok := strings.CutPrefix(name, root+"/"); ok && p.config.Matches(rel) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// "files" may name files the walk skipped
	for _, f := range p.config.Files {
		name := p.absName(f)
		if !slices.Contains(names, name) && p.fsys.Exists(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// readAll reads and parses names concurrently.
func (p *Project) readAll(ctx context.Context, names []string) ([]*sourceFile, error) {
	jobs := p.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	out := make([]*sourceFile, len(names))
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sf, err := p.readFile(name)
			if err != nil {
				return err
			}
			out[i] = sf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// readFile reads and parses one file. A file that fails to parse stays in
// the project without references.
func (p *Project) readFile(name string) (*sourceFile, error) {
	kind, ok := kindOf(name)
	if !ok {
		return nil, errors.New("unsupported file type: " + name)
	}
	data, err := p.fsys.ReadFile(name)
	if err != nil {
		return nil, err
	}
	info, err := analyze(kind, data)
	if err != nil {
		p.logger.Warn("parse failed", "file", name, "error", err)
	}
	return &sourceFile{
		name:   name,
		path:   p.toPath(name),
		kind:   kind,
		text:   data,
		digest: builder.ComputeHash(string(data)),
		info:   info,
	}, nil
}

// syncExternal brings the set of dependency declarations in line with what
// project files import. It reports whether the set changed.
func (p *Project) syncExternal() bool {
	var queue []*sourceFile
	for _, sf := range p.files {
		if !sf.external {
			queue = append(queue, sf)
		}
	}

	changed := false
	reached := make(map[builder.Path]bool)
	for len(queue) > 0 {
		sf := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, name := range p.dependencyNames(sf, p.fsys.Exists) {
			if !isExternalDeclaration(name) {
				continue
			}
			pth := p.toPath(name)
			if reached[pth] {
				continue
			}
			reached[pth] = true

			ext, ok := p.files[pth]
			switch {
			case ok && !ext.external:
				continue
			case !ok:
				loaded, err := p.readFile(name)
				if err != nil {
					p.logger.Warn("dependency declarations unreadable", "file", name, "error", err)
					continue
				}
				loaded.external = true
				p.put(loaded)
				ext = loaded
				changed = true
			}
			queue = append(queue, ext)
		}
	}

	for pth, sf := range p.files {
		if sf.external && !reached[pth] {
			delete(p.files, pth)
			changed = true
		}
	}
	return changed
}

// SourceFile implements builder.Host.
func (p *Project) SourceFile(pth builder.Path) (builder.SourceFile, bool) {
	sf, ok := p.files[pth]
	if !ok {
		return builder.SourceFile{}, false
	}
	return builder.SourceFile{
		Text:                string(sf.text),
		IsDeclarationFile:   sf.kind == kindDeclaration,
		IsExternalModule:    sf.info.isModule,
		IsAmbientModuleOnly: sf.info.ambientOnly,
	}, true
}

// DeclarationEmit implements builder.Host.
func (p *Project) DeclarationEmit(pth builder.Path) (string, bool) {
	sf, ok := p.files[pth]
	if !ok {
		return "", false
	}
	switch sf.kind {
	case kindHTML:
		// pages export nothing
		return "", true
	case kindDeclaration:
		return string(sf.text), true
	}
	text, err := p.declarationEmit(sf)
	if err != nil {
		p.logger.Warn("declaration emit failed", "file", sf.name, "error", err)
		return "", false
	}
	return text, true
}

// ReferencedFiles implements builder.Host.
func (p *Project) ReferencedFiles(pth builder.Path) []builder.Path {
	sf, ok := p.files[pth]
	if !ok {
		return nil
	}
	return p.references(sf)
}

// ScriptVersion implements builder.Host.
func (p *Project) ScriptVersion(pth builder.Path) string {
	sf, ok := p.files[pth]
	if !ok {
		return ""
	}
	return strconv.Itoa(sf.version)
}

// HasMixedContent implements builder.Host. HTML pages take part in the
// graph through their module scripts but are never emitted.
func (p *Project) HasMixedContent(pth builder.Path) bool {
	sf, ok := p.files[pth]
	return ok && sf.kind == kindHTML
}

// CompilerOptions implements builder.Host.
func (p *Project) CompilerOptions() builder.CompilerOptions {
	return builder.CompilerOptions{
		Module:          p.config.CompilerOptions.Module,
		OutFile:         p.config.OutFile(),
		IsolatedModules: p.config.CompilerOptions.IsolatedModules,
	}
}

// FileNames implements builder.Host. Names are sorted.
func (p *Project) FileNames() []builder.Path {
	return slices.Clone(p.names)
}

// ProjectVersion implements builder.Host.
func (p *Project) ProjectVersion() string {
	return strconv.Itoa(p.version)
}
