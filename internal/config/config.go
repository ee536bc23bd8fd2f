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
// Package config reads kiln settings through viper: command line flags
// first, then KILN_* environment variables, then an optional kiln.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"bennypowers.dev/kiln/builder"
	"bennypowers.dev/kiln/project"
	"bennypowers.dev/kiln/service"
)

// Keys read by the commands.
const (
	KeyProject              = "project"
	KeyOutput               = "output"
	KeyVerbose              = "verbose"
	KeyJobs                 = "jobs"
	KeyCaseInsensitive      = "case-insensitive"
	KeyDeclarationCacheSize = "declaration-cache-size"
	KeyDebounce             = "watch.debounce"
	KeyIgnore               = "watch.ignore"
	KeyMetricsAddr          = "watch.metrics-addr"
)

// Init points viper at file, or at kiln.yaml in the working directory when
// file is empty. A missing default config file is not an error.
func Init(file string) error {
	viper.SetEnvPrefix("kiln")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault(KeyProject, ".")
	viper.SetDefault(KeyDeclarationCacheSize, project.DefaultDeclarationCacheSize)

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("kiln")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Abs makes name absolute against the working directory and returns it with
// forward slashes, the form project identities use.
func Abs(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// ProjectPath returns the configured tsconfig file or directory.
func ProjectPath() (string, error) {
	p, err := Abs(viper.GetString(KeyProject))
	if err != nil {
		return "", fmt.Errorf("invalid project path: %w", err)
	}
	return p, nil
}

// Logger returns a text logger on w, at debug level when verbose is set.
func Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool(KeyVerbose) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ServiceOptions assembles service options from the current settings.
func ServiceOptions(logger *slog.Logger, observer builder.Observer) service.Options {
	return service.Options{
		Project: project.Options{
			Jobs:                 viper.GetInt(KeyJobs),
			CaseInsensitive:      viper.GetBool(KeyCaseInsensitive),
			DeclarationCacheSize: viper.GetInt(KeyDeclarationCacheSize),
			Logger:               logger,
		},
		Observer: observer,
		Logger:   logger,
	}
}
