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

package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLoader_LoadsEmbeddedDefaultsForEverySupportedLanguage(t *testing.T) {
	loader := NewQueryLoader()

	for lang := range SupportedLanguages {
		text, err := loader.LoadQuery(lang)
		require.NoError(t, err, "language %q", lang)
		assert.NotEmpty(t, text, "language %q should have a non-empty default pattern", lang)
	}
}

func TestQueryLoader_HasQuery(t *testing.T) {
	loader := NewQueryLoader()

	assert.True(t, loader.HasQuery(Python))
	assert.False(t, loader.HasQuery(Language("cobol")))
}

func TestQueryLoader_UnsupportedLanguageErrors(t *testing.T) {
	loader := NewQueryLoader()

	_, err := loader.LoadQuery(Language("cobol"))
	assert.Error(t, err)
}

func TestQueryLoader_CachesAfterFirstLoad(t *testing.T) {
	loader := NewQueryLoader()

	first, err := loader.LoadQuery(Rust)
	require.NoError(t, err)

	second, err := loader.LoadQuery(Rust)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQueryLoader_SetOverridePath(t *testing.T) {
	dir := t.TempDir()
	overridePath := filepath.Join(dir, "custom.scm")
	require.NoError(t, os.WriteFile(overridePath, []byte("(custom_pattern) @custom"), 0o644))

	loader := NewQueryLoader()
	_, err := loader.LoadQuery(JavaScript) // prime the cache with the default
	require.NoError(t, err)

	loader.SetOverridePath(JavaScript, overridePath)

	text, err := loader.LoadQuery(JavaScript)
	require.NoError(t, err)
	assert.Equal(t, "(custom_pattern) @custom", text)
}

func TestQueryLoader_ClearingOverrideRestoresDefault(t *testing.T) {
	dir := t.TempDir()
	overridePath := filepath.Join(dir, "custom.scm")
	require.NoError(t, os.WriteFile(overridePath, []byte("(custom_pattern) @custom"), 0o644))

	loader := NewQueryLoader()
	loader.SetOverridePath(Python, overridePath)
	overridden, err := loader.LoadQuery(Python)
	require.NoError(t, err)
	require.Equal(t, "(custom_pattern) @custom", overridden)

	loader.SetOverridePath(Python, "")
	restored, err := loader.LoadQuery(Python)
	require.NoError(t, err)
	assert.NotEqual(t, overridden, restored)
}
