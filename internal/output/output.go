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
// Package output formats kiln command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/fs"
)

var (
	fileColor    = color.New(color.Bold)
	pathColor    = color.New(color.FgCyan)
	emitColor    = color.New(color.FgGreen)
	removedColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// Entry is the affected set of one file, with names relative to the
// project directory.
type Entry struct {
	File     string   `json:"file"`
	Affected []string `json:"affected"`
}

// NewEntry builds an Entry for file, sorting the affected names.
func NewEntry(dir string, file builder.Path, affected []builder.Path) Entry {
	e := Entry{File: Rel(dir, file), Affected: make([]string, 0, len(affected))}
	for _, p := range affected {
		e.Affected = append(e.Affected, Rel(dir, p))
	}
	slices.Sort(e.Affected)
	return e
}

// Rel returns p relative to dir when it lies below it.
func Rel(dir string, p builder.Path) string {
	if rel, ok := strings.CutPrefix(string(p), dir+"/"); ok {
		return rel
	}
	return string(p)
}

// FormatAffected renders entries as "text" or "json".
func FormatAffected(entries []Entry, format string) (string, error) {
	switch format {
	case "json":
		if entries == nil {
			entries = []Entry{}
		}
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("error marshaling affected files: %w", err)
		}
		return string(out), nil
	case "text":
		var b strings.Builder
		for i, e := range entries {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s affects %d %s\n", fileColor.Sprint(e.File), len(e.Affected), plural(len(e.Affected), "file", "files"))
			for _, a := range e.Affected {
				fmt.Fprintf(&b, "  %s\n", pathColor.Sprint(a))
			}
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of text, json", format)
}

// Write prints text to stdout, or to the file named by viper's "output"
// key when it is set.
func Write(osfs fs.FileSystem, w io.Writer, text string) error {
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, []byte(text+"\n"), 0644)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// Emitted prints one line per written file.
func Emitted(w io.Writer, dir string, emitted []builder.Path) {
	for _, p := range emitted {
		fmt.Fprintf(w, "%s %s\n", emitColor.Sprint("emit"), Rel(dir, p))
	}
}

// Removed prints one line per file that left the project.
func Removed(w io.Writer, dir string, removed []builder.Path) {
	for _, p := range removed {
		fmt.Fprintf(w, "%s %s\n", removedColor.Sprint("gone"), Rel(dir, p))
	}
}

// Error prints err, one line per joined error.
func Error(w io.Writer, err error) {
	if err == nil {
		return
	}
	for line := range strings.SplitSeq(err.Error(), "\n") {
		fmt.Fprintf(w, "%s %s\n", errorColor.Sprint("error"), line)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
