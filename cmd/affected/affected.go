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
// Package affected provides the affected command for kiln.
package affected

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/internal/config"
	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/service"
)

// Cmd is the affected command.
var Cmd = &cobra.Command{
	Use:   "affected <file>...",
	Short: "List the files an edit would re-emit",
	Long: `For each file, list the project files that must be emitted again when
it changes.

Without history every file counts as changed, so the answer is the file and
every file that depends on it. With --emit the project is built first and
each file is then compiled on save: only files whose text or dependencies'
declarations changed since the build are listed and written.`,
	Example: `  # Which files depend on math.ts?
  kiln affected src/math.ts

  # Machine readable
  kiln affected src/math.ts src/util.ts --format json

  # Build, then compile on save after an edit
  kiln affected src/math.ts --emit`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	Cmd.Flags().Bool("emit", false, "Build the project, then emit what each file affects")
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	switch format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be one of text, json", format)
	}
	emit, err := cmd.Flags().GetBool("emit")
	if err != nil {
		return fmt.Errorf("error reading emit flag: %w", err)
	}

	osfs := fs.NewOSFileSystem()
	configPath, err := config.ProjectPath()
	if err != nil {
		return err
	}
	s, err := service.Open(cmd.Context(), osfs, configPath, config.ServiceOptions(slog.Default(), nil))
	if err != nil {
		return err
	}
	dir := s.Config().Dir

	var errs []error
	if emit {
		res, err := s.BuildAll()
		output.Emitted(cmd.ErrOrStderr(), dir, res.Emitted)
		if err != nil {
			errs = append(errs, err)
		}
	}

	var entries []output.Entry
	for _, arg := range args {
		name, err := config.Abs(arg)
		if err != nil {
			return fmt.Errorf("invalid file path %q: %w", arg, err)
		}

		var affected []builder.Path
		if emit {
			res, err := s.Save(cmd.Context(), name)
			if err != nil {
				errs = append(errs, err)
				if res.Affected == nil {
					continue
				}
			}
			affected = res.Affected
			output.Emitted(cmd.ErrOrStderr(), dir, res.Emitted)
		} else {
			affected, err = s.Affected(name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
		}
		entries = append(entries, output.NewEntry(dir, s.Path(name), affected))
	}

	text, err := output.FormatAffected(entries, format)
	if err != nil {
		return err
	}
	if err := output.Write(osfs, cmd.OutOrStdout(), text); err != nil {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		output.Error(cmd.ErrOrStderr(), err)
		return errors.New("some files could not be processed")
	}
	return nil
}
