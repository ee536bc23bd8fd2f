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
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/kiln/fs"
)

// ErrNoConfig is returned when no tsconfig.json can be found.
var ErrNoConfig = errors.New("no tsconfig.json found")

// defaultExclude mirrors the directories tsc leaves out when a config has no
// exclude list of its own.
var defaultExclude = []string{"node_modules", "bower_components", "jspm_packages"}

// CompilerOptions is the subset of tsconfig compilerOptions kiln reads.
type CompilerOptions struct {
	Module          string `json:"module"`
	OutFile         string `json:"outFile"`
	Out             string `json:"out"`
	OutDir          string `json:"outDir"`
	RootDir         string `json:"rootDir"`
	IsolatedModules bool   `json:"isolatedModules"`
	Declaration     bool   `json:"declaration"`
	EmitBOM         bool   `json:"emitBOM"`
}

// Config is a parsed tsconfig.json.
type Config struct {
	// Path is the config file name; Dir is the directory it lives in.
	// Relative names in the config are resolved against Dir.
	Path string `json:"-"`
	Dir  string `json:"-"`

	Extends         string          `json:"extends"`
	CompilerOptions CompilerOptions `json:"compilerOptions"`
	Files           []string        `json:"files"`
	Include         []string        `json:"include"`
	Exclude         []string        `json:"exclude"`
	CompileOnSave   bool            `json:"compileOnSave"`
}

// ParseConfig parses tsconfig.json data. Comments and trailing commas are
// accepted, as tsc does.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(stripJSONC(data), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads the config at name. When name is a directory the
// tsconfig.json inside it is used. A relative "extends" is followed and the
// child's compiler options are layered over the parent's.
func LoadConfig(fsys fs.Reader, name string) (*Config, error) {
	if info, err := fsys.Stat(name); err == nil && info.IsDir() {
		name = path.Join(name, "tsconfig.json")
	}
	return loadConfig(fsys, path.Clean(name), nil)
}

func loadConfig(fsys fs.Reader, name string, seen []string) (*Config, error) {
	if slices.Contains(seen, name) {
		return nil, fmt.Errorf("circular extends in %s", name)
	}
	data, err := fsys.ReadFile(name)
	if err != nil {
		if !fsys.Exists(name) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfig, name)
		}
		return nil, err
	}
	data = stripJSONC(data)

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if cfg.Extends != "" && isRelative(cfg.Extends) {
		parentName := path.Join(path.Dir(name), cfg.Extends)
		if path.Ext(parentName) != ".json" {
			parentName += ".json"
		}
		parent, err := loadConfig(fsys, parentName, append(seen, name))
		if err != nil {
			return nil, err
		}
		// unmarshal again on top of the parent so only fields the child
		// sets override
		var overlay struct {
			CompilerOptions json.RawMessage `json:"compilerOptions"`
		}
		if err := json.Unmarshal(data, &overlay); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		cfg.CompilerOptions = parent.CompilerOptions
		if len(overlay.CompilerOptions) > 0 {
			if err := json.Unmarshal(overlay.CompilerOptions, &cfg.CompilerOptions); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", name, err)
			}
		}
	}

	cfg.Path = name
	cfg.Dir = path.Dir(name)
	return &cfg, nil
}

// OutDir returns the absolute output directory, or "" to emit next to sources.
func (c *Config) OutDir() string {
	return c.abs(c.CompilerOptions.OutDir)
}

// RootDir returns the absolute directory source layout is mirrored from.
func (c *Config) RootDir() string {
	if dir := c.abs(c.CompilerOptions.RootDir); dir != "" {
		return dir
	}
	return c.Dir
}

// OutFile returns the absolute bundle file name, or "" when every input
// emits separately.
func (c *Config) OutFile() string {
	if c.CompilerOptions.OutFile != "" {
		return c.abs(c.CompilerOptions.OutFile)
	}
	return c.abs(c.CompilerOptions.Out)
}

func (c *Config) abs(name string) string {
	if name == "" {
		return ""
	}
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(c.Dir, name)
}

// Matches reports whether the file with the given name, relative to the
// config directory, is part of the project.
func (c *Config) Matches(rel string) bool {
	rel = strings.TrimPrefix(path.Clean(rel), "./")
	if _, ok := kindOf(rel); !ok {
		return false
	}
	for _, f := range c.Files {
		if strings.TrimPrefix(path.Clean(f), "./") == rel {
			return true
		}
	}

	include := c.Include
	if include == nil {
		if c.Files != nil {
			return false
		}
		include = []string{"**/*"}
	}
	if !matchAny(include, rel) {
		return false
	}

	exclude := c.Exclude
	if exclude == nil {
		exclude = defaultExclude
		if out := c.CompilerOptions.OutDir; out != "" {
			exclude = append(slices.Clone(exclude), out)
		}
	}
	return !matchAny(exclude, rel)
}

// matchAny matches rel against tsconfig-style patterns. A pattern without
// wildcards or extension names a directory and matches everything below it.
func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(path.Clean(pattern), "./")
		if !strings.ContainsAny(pattern, "*?") && path.Ext(pattern) == "" {
			if pattern == "." || rel == pattern || strings.HasPrefix(rel, pattern+"/") {
				return true
			}
			continue
		}
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// stripJSONC removes comments and trailing commas so the result can be
// decoded with encoding/json. String contents are left untouched.
func stripJSONC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case inString:
			out = append(out, c)
			if c == '\\' && i+1 < len(data) {
				i++
				out = append(out, data[i])
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i++
		case c == ']' || c == '}':
			// drop a comma that only has whitespace between it and c
			j := len(out) - 1
			for j >= 0 && isSpace(out[j]) {
				j--
			}
			if j >= 0 && out[j] == ',' {
				out = append(out[:j], out[j+1:]...)
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
