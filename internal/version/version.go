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
// Package version reports the kiln build version and the parser versions
// compiled into the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Modules whose versions decide how sources are parsed.
const (
	runtimeModule = "github.com/tree-sitter/go-tree-sitter"
	grammarModule = "github.com/tree-sitter/tree-sitter-typescript"
)

var (
	// Version information, set at build time via ldflags
	Version   = "dev"     // Version string (e.g., "v0.3.0")
	GitCommit = "unknown" // Git commit hash
	GitTag    = "unknown" // Git tag
	BuildTime = "unknown" // Build timestamp
	GitDirty  = ""        // "dirty" if working directory has uncommitted changes
)

// Info describes the running binary.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"gitCommit"`
	GitTag     string `json:"gitTag"`
	BuildTime  string `json:"buildTime"`
	GitDirty   string `json:"gitDirty,omitempty"`
	Go         string `json:"go"`
	TreeSitter string `json:"treeSitter"`
	Grammar    string `json:"grammar"`
}

// Get collects the version information of the running binary.
func Get() Info {
	info, _ := debug.ReadBuildInfo()
	return Info{
		Version:    versionFrom(info),
		GitCommit:  GitCommit,
		GitTag:     GitTag,
		BuildTime:  BuildTime,
		GitDirty:   GitDirty,
		Go:         runtime.Version(),
		TreeSitter: depVersion(info, runtimeModule),
		Grammar:    depVersion(info, grammarModule),
	}
}

// String renders the human readable form printed by kiln version.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "kiln %s", i.Version)
	if i.GitCommit != "unknown" {
		fmt.Fprintf(&b, " (commit: %s)", i.GitCommit)
	}
	fmt.Fprintf(&b, "\n%s, tree-sitter %s, typescript grammar %s", i.Go, i.TreeSitter, i.Grammar)
	return b.String()
}

// GetVersion returns the version string for the application
func GetVersion() string {
	info, _ := debug.ReadBuildInfo()
	return versionFrom(info)
}

func versionFrom(info *debug.BuildInfo) string {
	// If Version was set via ldflags, use it
	if Version != "dev" {
		return Version
	}

	if info != nil && info.Main.Version != "(devel)" && info.Main.Version != "" {
		return info.Main.Version
	}

	// Final fallback: construct from git information if available
	if GitTag != "unknown" && GitCommit != "unknown" {
		version := GitTag
		commitSuffix := GitCommit
		if len(GitCommit) > 7 {
			commitSuffix = GitCommit[:7]
		}
		if commitSuffix != "" && !strings.HasSuffix(GitTag, commitSuffix) {
			version = fmt.Sprintf("%s-%s", GitTag, commitSuffix)
		}
		if GitDirty == "dirty" {
			version += "-dirty"
		}
		return version
	}

	return "dev"
}

// depVersion finds module among the dependencies the binary was built
// with, honouring replace directives.
func depVersion(info *debug.BuildInfo, module string) string {
	if info == nil {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path != module {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}
