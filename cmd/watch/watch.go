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
// Package watch provides the watch command for kiln.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/internal/config"
	"bennypowers.dev/kiln/internal/metrics"
	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/service"
	"bennypowers.dev/kiln/watch"
)

// Cmd is the watch command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then re-emit affected files on every change",
	Long: `Build the project once, then watch its directory. Changes are collected
until the tree is quiet for the debounce window and applied as one batch:
files are re-read, the dependency graph is updated, and every file an edit
affects is emitted again.

Edits to tsconfig.json are not picked up; restart the watcher.`,
	Example: `  # Watch the project in the working directory
  kiln watch

  # Serve Prometheus metrics while watching
  kiln watch --metrics-addr :9464

  # Ignore generated sources
  kiln watch --ignore "**/*.gen.ts"`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet time before a batch of changes is applied")
	Cmd.Flags().StringSlice("ignore", nil, "Extra ignore patterns, relative to the project directory")
	Cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")

	_ = viper.BindPFlag(config.KeyDebounce, Cmd.Flags().Lookup("debounce"))
	_ = viper.BindPFlag(config.KeyIgnore, Cmd.Flags().Lookup("ignore"))
	_ = viper.BindPFlag(config.KeyMetricsAddr, Cmd.Flags().Lookup("metrics-addr"))
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()
	m := metrics.New()

	configPath, err := config.ProjectPath()
	if err != nil {
		return err
	}
	s, err := service.Open(ctx, fs.NewOSFileSystem(), configPath, config.ServiceOptions(logger, m))
	if err != nil {
		return err
	}
	cfg := s.Config()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	res, err := s.BuildAll()
	output.Emitted(stdout, cfg.Dir, res.Emitted)
	output.Error(stderr, err)

	if addr := viper.GetString(config.KeyMetricsAddr); addr != "" {
		stop, err := serveMetrics(addr, m, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	handle := func(changes []watch.Change) {
		for _, c := range changes {
			if c.Path == cfg.Path {
				logger.Warn("tsconfig.json changed; restart kiln watch to apply it")
			}
		}
		start := time.Now()
		report, err := s.Apply(ctx, changes)
		m.BatchApplied(time.Since(start).Seconds())
		output.Removed(stdout, cfg.Dir, report.Removed)
		output.Emitted(stdout, cfg.Dir, report.Emitted())
		if err != nil && !errors.Is(err, context.Canceled) {
			output.Error(stderr, err)
		}
	}

	w, err := watch.New(cfg.Dir, handle, watch.Options{
		Debounce: viper.GetDuration(config.KeyDebounce),
		Ignore:   ignorePatterns(cfg.Dir, cfg.OutDir(), viper.GetStringSlice(config.KeyIgnore)),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	logger.Info("watching", "dir", cfg.Dir, "strategy", s.Strategy())

	<-ctx.Done()
	return w.Stop()
}

// ignorePatterns extends the default ignore list with the output directory,
// so emits do not trigger further batches, and with the user's patterns.
func ignorePatterns(dir, outDir string, extra []string) []string {
	patterns := slices.Clone(watch.DefaultIgnore)
	if rel, ok := strings.CutPrefix(outDir, dir+"/"); ok {
		patterns = append(patterns, rel)
	}
	for _, p := range extra {
		patterns = append(patterns, filepath.ToSlash(p))
	}
	return patterns
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("serving metrics: %w", err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("stopping metrics server", "error", err)
		}
	}, nil
}
