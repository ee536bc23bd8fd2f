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
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// scanHTML collects the module scripts of an HTML page: the src of every
// <script type="module"> and the imports of inline module scripts. Classic
// scripts contribute their dynamic imports only, since they cannot use
// static import syntax.
func scanHTML(text []byte) (parseInfo, error) {
	var info parseInfo
	z := html.NewTokenizer(bytes.NewReader(text))

	inScript, isModule := false, false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return info, nil
			}
			return info, z.Err()

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				continue
			}
			var typ, src string
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "type":
					typ = strings.TrimSpace(string(val))
				case "src":
					src = strings.TrimSpace(string(val))
				}
			}
			inScript, isModule = true, typ == "module"
			if isModule && src != "" {
				info.specifiers = append(info.specifiers, src)
			}

		case html.TextToken:
			if !inScript {
				continue
			}
			inline := bytes.TrimSpace(z.Text())
			if len(inline) == 0 {
				continue
			}
			// syntax errors in inline scripts are not fatal to the page
			specs, _ := extractImports(inline, !isModule)
			info.specifiers = append(info.specifiers, specs...)

		case html.EndTagToken:
			inScript = false
		}
	}
}
