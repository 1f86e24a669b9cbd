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
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Normalizer drives the tree-sitter parser for each supported language and
// turns its query captures into a NormalizedCapture stream. Parsers are
// pooled per language since *sitter.Parser is not safe for concurrent use.
type Normalizer struct {
	loader *QueryLoader

	initOnce sync.Once
	jsPool   sync.Pool
	tsPool   sync.Pool
	pyPool   sync.Pool
	rsPool   sync.Pool

	mu          sync.Mutex
	queryCache  map[Language]*sitter.Query
}

// NewNormalizer builds a Normalizer backed by loader (or a fresh default
// QueryLoader if nil).
func NewNormalizer(loader *QueryLoader) *Normalizer {
	if loader == nil {
		loader = NewQueryLoader()
	}
	return &Normalizer{loader: loader, queryCache: make(map[Language]*sitter.Query)}
}

func (n *Normalizer) initPools() {
	n.initOnce.Do(func() {
		n.jsPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(javascript.GetLanguage())
			return p
		}
		n.tsPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(typescript.GetLanguage())
			return p
		}
		n.pyPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(python.GetLanguage())
			return p
		}
		n.rsPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(rust.GetLanguage())
			return p
		}
	})
}

func (n *Normalizer) grammar(lang Language) (*sitter.Parser, *sync.Pool, error) {
	n.initPools()
	var pool *sync.Pool
	switch lang {
	case JavaScript:
		pool = &n.jsPool
	case TypeScript:
		pool = &n.tsPool
	case Python:
		pool = &n.pyPool
	case Rust:
		pool = &n.rsPool
	default:
		return nil, nil, fmt.Errorf("capture: unsupported language %q", lang)
	}
	return pool.Get().(*sitter.Parser), pool, nil
}

func (n *Normalizer) sitterLanguage(lang Language) *sitter.Language {
	switch lang {
	case JavaScript:
		return javascript.GetLanguage()
	case TypeScript:
		return typescript.GetLanguage()
	case Python:
		return python.GetLanguage()
	case Rust:
		return rust.GetLanguage()
	default:
		return nil
	}
}

func (n *Normalizer) compiledQuery(lang Language) (*sitter.Query, error) {
	n.mu.Lock()
	if q, ok := n.queryCache[lang]; ok {
		n.mu.Unlock()
		return q, nil
	}
	n.mu.Unlock()

	patternText, err := n.loader.LoadQuery(lang)
	if err != nil {
		return nil, err
	}
	sitterLang := n.sitterLanguage(lang)
	if sitterLang == nil {
		return nil, fmt.Errorf("capture: unsupported language %q", lang)
	}
	q := sitter.NewQuery([]byte(patternText), sitterLang)

	n.mu.Lock()
	n.queryCache[lang] = q
	n.mu.Unlock()
	return q, nil
}

// Normalize parses src as lang and returns the ordered NormalizedCapture
// stream produced by executing the language's compiled query pattern
// against the resulting tree. Ordering matches document order, since
// tree-sitter's QueryCursor yields matches in the order their captures
// start.
func (n *Normalizer) Normalize(ctx context.Context, lang Language, src []byte) ([]NormalizedCapture, error) {
	parser, pool, err := n.grammar(lang)
	if err != nil {
		return nil, err
	}
	defer pool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("capture: parse failed: %w", err)
	}
	defer tree.Close()

	query, err := n.compiledQuery(lang)
	if err != nil {
		return nil, err
	}

	cursor := sitter.NewQueryCursor()
	cursor.Exec(query, tree.RootNode())

	var out []NormalizedCapture
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		out = append(out, capturesFromMatch(match, query, src)...)
	}
	return out, nil
}

// capturesFromMatch converts one query match into zero or more
// NormalizedCaptures. A match's captures are first split into primary
// captures (one or two dotted segments, e.g. "return" or
// "reference.method_call") and role
// captures (three segments, e.g. "reference.method_call.receiver" or
// "reference.member_access.object"); each role capture's text is folded
// into the Context of the primary capture sharing its category+entity
// within the same match, rather than emitted as a standalone record.
func capturesFromMatch(match *sitter.QueryMatch, query *sitter.Query, src []byte) []NormalizedCapture {
	type primary struct {
		capture  NormalizedCapture
		category string
		entity   string
	}
	var primaries []*primary
	type role struct {
		category string
		entity   string
		roleName string
		text     string
	}
	var roles []role

	for _, c := range match.Captures {
		name := query.CaptureNameForId(c.Index)
		parts := strings.SplitN(name, ".", 3)
		if len(parts) < 2 {
			// Single-segment names (@assignment, @return) are primaries
			// with an empty entity.
			parts = append(parts, "")
		}
		category := parts[0]
		entity := parts[1]
		node := c.Node

		// type_reference's third segment names the reference's context
		// (annotation/extends/implements/generic/return), not a sibling
		// attachment role: it is itself the primary capture.
		if len(parts) == 3 && entity != string(EntityTypeReference) {
			roles = append(roles, role{category: category, entity: entity, roleName: parts[2], text: node.Content(src)})
			continue
		}

		loc := NodeLocation{
			StartPosition: Position{Row: int(node.StartPoint().Row), Column: int(node.StartPoint().Column)},
			EndPosition:   Position{Row: int(node.EndPoint().Row), Column: int(node.EndPoint().Column)},
		}
		ctx := Context{"node_type": node.Type()}
		if len(parts) == 3 {
			ctx["role"] = parts[2]
		}
		nc := NormalizedCapture{
			Category: Category(category),
			Entity:   mapEntity(Entity(entity), category),
			Text:     node.Content(src),
			Location: loc,
			Context:  ctx,
		}
		primaries = append(primaries, &primary{capture: nc, category: category, entity: entity})
	}

	for _, r := range roles {
		for _, p := range primaries {
			if p.category == r.category && p.entity == r.entity {
				p.capture.Context[r.roleName] = r.text
			}
		}
	}

	out := make([]NormalizedCapture, 0, len(primaries))
	for _, p := range primaries {
		out = append(out, p.capture)
	}
	return out
}

// mapEntity normalizes a few pattern-name aliases used for readability in
// the .scm files (e.g. "new_expression" -> "constructor") onto the
// canonical Entity vocabulary.
func mapEntity(e Entity, category string) Entity {
	if e == EntityNewExpression {
		return EntityConstructor
	}
	return e
}
