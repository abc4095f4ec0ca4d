// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package client

// Pager tracks the cursor sequence of a paginated list view. The upstream
// protocol is forward-only: each page response carries an opaque
// nextPageToken, and going backwards is only possible by replaying tokens
// the pager has already seen. Index i of the token sequence is the token
// that fetches page i; page zero is always the empty token.
type Pager struct {
	tokens []string
	page   int
}

// NewPager creates a pager positioned at page zero.
func NewPager() *Pager {
	return &Pager{tokens: []string{""}}
}

// Token returns the token that fetches the current page.
func (p *Pager) Token() string {
	return p.tokens[p.page]
}

// Page returns the current zero-based page number.
func (p *Pager) Page() int {
	return p.page
}

// Observe records the nextPageToken from the current page's response.
// Tokens past the current page are discarded first, so a shrunken result
// set cannot leave stale forward tokens behind. An empty next token on
// page zero collapses the sequence to the initial state.
func (p *Pager) Observe(nextPageToken string) {
	if nextPageToken != "" {
		p.tokens = append(p.tokens[:p.page+1:p.page+1], nextPageToken)
		return
	}
	if p.page == 0 {
		p.tokens = []string{""}
	}
}

// CanNext reports whether a token for the following page is known.
func (p *Pager) CanNext() bool {
	return len(p.tokens) > p.page+1
}

// CanPrev reports whether the pager can move backwards.
func (p *Pager) CanPrev() bool {
	return p.page > 0
}

// Next advances one page. Returns false when no forward token is known.
func (p *Pager) Next() bool {
	if !p.CanNext() {
		return false
	}
	p.page++
	return true
}

// Prev moves back one page. Returns false on page zero.
func (p *Pager) Prev() bool {
	if !p.CanPrev() {
		return false
	}
	p.page--
	return true
}

// Reset returns to page zero with the initial token sequence. Callers
// reset whenever the filter changes: tokens are only meaningful within
// the filter they were issued under.
func (p *Pager) Reset() {
	p.tokens = []string{""}
	p.page = 0
}
