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

package storage

// schemaTables are the CozoDB relations backing one indexed project's
// structural graph: files, their symbols, resolved call edges, import
// edges, class-hierarchy nodes, and interface-implementation records.
// There is deliberately no embedding/vector relation here: this pipeline
// indexes structure (calls, hierarchy, interfaces), not semantic
// similarity.
var schemaTables = []string{
	`:create semindex_file { id: String => path: String, language: String, content_hash: String, size: Int }`,
	`:create semindex_symbol { id: String => name: String, kind: String, file_path: String, owning_class: String, availability: String, start_line: Int, end_line: Int, start_col: Int, end_col: Int }`,
	`:create semindex_call { id: String => caller_id: String, callee_id: String }`,
	`:create semindex_import { id: String => importing_file: String, exporting_file: String, imported_name: String, local_name: String, kind: String, start_line: Int }`,
	`:create semindex_class { id: String => name: String, file_path: String, base_classes: String, interfaces: String }`,
	`:create semindex_interface_impl { id: String => implementor_name: String, interface_name: String, is_complete: Bool, missing_members: String }`,
	`:create semindex_project_meta { key: String => value: String }`,
}
