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
package affected

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRunFlagErrors(t *testing.T) {
	tests := []struct {
		name  string
		flags func(cmd *cobra.Command)
		want  string
	}{
		{"format undefined", func(*cobra.Command) {}, "error reading format flag"},
		{"format wrong type", func(cmd *cobra.Command) {
			cmd.Flags().Int("format", 0, "")
		}, "error reading format flag"},
		{"emit undefined", func(cmd *cobra.Command) {
			cmd.Flags().String("format", "text", "")
		}, "error reading emit flag"},
		{"emit wrong type", func(cmd *cobra.Command) {
			cmd.Flags().String("format", "text", "")
			cmd.Flags().String("emit", "yes", "")
		}, "error reading emit flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "affected"}
			tt.flags(cmd)
			err := run(cmd, []string{"src/a.ts"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunInvalidFormat(t *testing.T) {
	cmd := &cobra.Command{Use: "affected"}
	cmd.Flags().String("format", "yaml", "")
	cmd.Flags().Bool("emit", false, "")
	if err := run(cmd, []string{"src/a.ts"}); err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("Expected an invalid format error, got %v", err)
	}
}
