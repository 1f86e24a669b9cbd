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

package semindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError_ErrorIncludesFileWhenSet(t *testing.T) {
	err := newPipelineError(ErrParseFailure, "a.py", "unexpected token %q", "}")
	assert.Equal(t, `parse_failure: a.py: unexpected token "}"`, err.Error())
}

func TestPipelineError_ErrorOmitsFileWhenEmpty(t *testing.T) {
	err := newPipelineError(ErrInvalidQueryPattern, "", "missing capture group")
	assert.Equal(t, "invalid_query_pattern: missing capture group", err.Error())
}

func TestPipelineError_FatalClassification(t *testing.T) {
	cases := []struct {
		kind  ErrorKind
		fatal bool
	}{
		{ErrInvalidQueryPattern, true},
		{ErrQueryFileNotFound, true},
		{ErrUnsupportedLanguage, false},
		{ErrParseFailure, false},
		{ErrMalformedCapture, false},
		{ErrUnresolvedImport, false},
		{ErrResolutionMiss, false},
		{ErrInvalidScope, false},
	}
	for _, c := range cases {
		err := newPipelineError(c.kind, "", "x")
		assert.Equal(t, c.fatal, err.Fatal(), "kind %q", c.kind)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	err := UnsupportedLanguage(Language("cobol"))
	assert.Equal(t, ErrUnsupportedLanguage, err.Kind)
	assert.False(t, err.Fatal(), "unsupported language is fatal for the file, not the whole project")
	assert.Contains(t, err.Error(), "cobol")
}
