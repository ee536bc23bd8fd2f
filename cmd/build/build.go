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
// Package build provides the build command for kiln.
package build

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/internal/config"
	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/service"
)

// Cmd is the build command.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Emit every file of a TypeScript project",
	Long: `Load the project named by --project and emit every file it includes.

Output goes where tsconfig.json says: below outDir, or into outFile.`,
	Example: `  # Build the project in the working directory
  kiln build

  # Build a project by its config file
  kiln build -p packages/app/tsconfig.json`,
	Args: cobra.NoArgs,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	configPath, err := config.ProjectPath()
	if err != nil {
		return err
	}
	s, err := service.Open(cmd.Context(), fs.NewOSFileSystem(), configPath, config.ServiceOptions(slog.Default(), nil))
	if err != nil {
		return err
	}

	res, err := s.BuildAll()
	output.Emitted(cmd.OutOrStdout(), s.Config().Dir, res.Emitted)
	if err != nil {
		output.Error(cmd.ErrOrStderr(), err)
		return errors.New("build failed")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d files emitted\n", len(res.Emitted), len(s.Files()))
	return nil
}
