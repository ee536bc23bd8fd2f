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
// Command kiln builds TypeScript projects incrementally: after an edit it
// emits only the files the edit can affect.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/kiln/cmd/affected"
	"bennypowers.dev/kiln/cmd/build"
	"bennypowers.dev/kiln/cmd/version"
	"bennypowers.dev/kiln/cmd/watch"
	"bennypowers.dev/kiln/internal/config"
	buildinfo "bennypowers.dev/kiln/internal/version"
)

var (
	cfgFile        string
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "kiln",
		Short: "Incremental emit for TypeScript projects",
		Long: `kiln emits TypeScript projects incrementally. It tracks which files
import which, and whether an edit changed a file's public declarations, to
decide which outputs an edit can affect.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(cfgFile); err != nil {
				return err
			}
			slog.SetDefault(config.Logger(cmd.ErrOrStderr()))

			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	rootCmd.Version = buildinfo.GetVersion()

	// Root flags (persistent across all commands)
	rootCmd.PersistentFlags().StringP("project", "p", ".", "tsconfig.json, or the directory holding it")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Report file (default: stdout)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().IntP("jobs", "j", 0, "Files parsed in parallel (default: number of CPUs)")
	rootCmd.PersistentFlags().Bool("case-insensitive", false, "Treat file names that differ only in case as one file")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: kiln.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	for _, key := range []string{
		config.KeyProject,
		config.KeyOutput,
		config.KeyVerbose,
		config.KeyJobs,
		config.KeyCaseInsensitive,
	} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}

	// Add commands
	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(affected.Cmd)
	rootCmd.AddCommand(watch.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
