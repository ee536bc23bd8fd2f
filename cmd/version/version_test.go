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
package version

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newCmd(format string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "version", RunE: run}
	cmd.Flags().StringP("format", "f", format, "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	return cmd, &out
}

func TestRun(t *testing.T) {
	cmd, out := newCmd("json")
	if err := run(cmd, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Errorf("Expected JSON output, got %q: %v", out.String(), err)
	}

	cmd, _ = newCmd("yaml")
	if err := run(cmd, nil); err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("Expected an invalid format error, got %v", err)
	}
}

func TestRunFlagErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
	}{
		{"undefined", &cobra.Command{Use: "version"}},
		{"wrong type", func() *cobra.Command {
			cmd := &cobra.Command{Use: "version"}
			cmd.Flags().Bool("format", false, "")
			return cmd
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.cmd, nil)
			if err == nil || !strings.Contains(err.Error(), "error reading format flag") {
				t.Errorf("Expected a flag read error, got %v", err)
			}
		})
	}
}
