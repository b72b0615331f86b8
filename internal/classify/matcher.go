// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package classify

import "fmt"

// maxGroups is the number of keyword groups a matcher can report.
const maxGroups = 64

// matcher is an Aho-Corasick automaton over lower-cased keywords, each
// belonging to a numbered group. One scan of a description reports every
// group with a keyword occurring anywhere in it, substring semantics
// included, so "reroof" hits the "roof" keyword.
//
// A matcher is immutable after newMatcher and safe for concurrent use.
type matcher struct {
	nodes []acNode
}

type acNode struct {
	next map[rune]int32
	fail int32
	// hits has bit g set when a group g keyword ends here or at any node
	// on the failure chain.
	hits uint64
}

// newMatcher builds the automaton. groups[g] holds the keywords of group
// g; empty keywords are ignored.
func newMatcher(groups [][]string) *matcher {
	if len(groups) > maxGroups {
		panic(fmt.Sprintf("classify: %d keyword groups exceeds the limit of %d", len(groups), maxGroups))
	}
	m := &matcher{nodes: []acNode{{next: map[rune]int32{}}}}
	for g, keywords := range groups {
		for _, kw := range keywords {
			if kw != "" {
				m.insert(kw, g)
			}
		}
	}
	m.link()
	return m
}

func (m *matcher) insert(kw string, group int) {
	cur := int32(0)
	for _, r := range kw {
		nxt, ok := m.nodes[cur].next[r]
		if !ok {
			nxt = int32(len(m.nodes))
			m.nodes = append(m.nodes, acNode{next: map[rune]int32{}})
			m.nodes[cur].next[r] = nxt
		}
		cur = nxt
	}
	m.nodes[cur].hits |= 1 << uint(group)
}

// link sets failure links breadth first, so a node's failure target is
// final before the node inherits its hits.
func (m *matcher) link() {
	queue := make([]int32, 0, len(m.nodes))
	for _, child := range m.nodes[0].next {
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for r, child := range m.nodes[cur].next {
			queue = append(queue, child)

			f := m.nodes[cur].fail
			for {
				if nxt, ok := m.nodes[f].next[r]; ok {
					m.nodes[child].fail = nxt
					break
				}
				if f == 0 {
					break
				}
				f = m.nodes[f].fail
			}
			m.nodes[child].hits |= m.nodes[m.nodes[child].fail].hits
		}
	}
}

// scan returns the group bits found in text, which must already be
// lower-cased.
func (m *matcher) scan(text string) uint64 {
	var hits uint64
	cur := int32(0)
	for _, r := range text {
		for {
			if nxt, ok := m.nodes[cur].next[r]; ok {
				cur = nxt
				break
			}
			if cur == 0 {
				break
			}
			cur = m.nodes[cur].fail
		}
		hits |= m.nodes[cur].hits
	}
	return hits
}
