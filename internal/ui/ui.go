// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui renders human-readable terminal output for the semindex CLI:
// colored headers, labels, and status lines built on fatih/color, with
// color auto-disabled when stdout is not a terminal.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color handles, initialized by InitColors.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors configures whether colored output is produced. It disables
// color when noColor is set, when NO_COLOR is present in the environment,
// or when stdout is not attached to a terminal.
func InitColors(noColor bool) {
	disable := noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd())
	color.NoColor = disable
}

// Header prints a bold section title.
func Header(format string, args ...any) {
	Bold.Println(fmt.Sprintf(format, args...))
}

// SubHeader prints an indented, dim section subtitle.
func SubHeader(format string, args ...any) {
	Dim.Println("  " + fmt.Sprintf(format, args...))
}

// Label prints "key: value" with the key dimmed.
func Label(key, value string) {
	fmt.Printf("%s %s\n", Dim.Sprintf("%s:", key), value)
}

// DimText returns s rendered in the dim/faint style, for embedding inline.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText renders an integer count alongside its noun, pluralizing noun
// with a trailing "s" when n != 1.
func CountText(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Info prints an informational line prefixed with a cyan arrow.
func Info(msg string) {
	fmt.Printf("%s %s\n", Cyan.Sprint("->"), msg)
}

// Infof is the formatted form of Info.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

// Success prints a green checkmark line.
func Success(msg string) {
	fmt.Printf("%s %s\n", Green.Sprint("✓"), msg)
}

// Successf is the formatted form of Success.
func Successf(format string, args ...any) {
	Success(fmt.Sprintf(format, args...))
}

// Warning prints a yellow warning line.
func Warning(msg string) {
	fmt.Printf("%s %s\n", Yellow.Sprint("!"), msg)
}

// Warningf is the formatted form of Warning.
func Warningf(format string, args ...any) {
	Warning(fmt.Sprintf(format, args...))
}

// Rule prints a horizontal divider sized to the terminal's conventional
// 80-column width, dimmed.
func Rule() {
	Dim.Println(strings.Repeat("-", 80))
}
