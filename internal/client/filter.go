// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "strings"

// Filter wrapper templates. "{value}" is replaced with the raw input.
const (
	// EntryFilterWrapper turns a bare search term into an exact entry
	// ID match.
	EntryFilterWrapper = `entryId:"{value}"`
)

// Quick filter presets for the entries view. These are full filter
// expressions and bypass the bare-term rewrite.
const (
	QuickFilterArchived   = `state="ARCHIVED"`
	QuickFilterInProgress = `state="ARCHIVING"`
	QuickFilterOnHold     = `state="ON_HOLD"`
	QuickFilterRetracted  = `state="RETRACTED" OR state="RETRACTING"`
	QuickFilterFailed     = `state="FAILED" OR state="CANCELLED"`
)

// filterOperators are the tokens that mark an input as an already-formed
// filter expression.
var filterOperators = []string{":", ">", "<", "=", "AND", "OR"}

// RewriteBare wraps a bare search term in the given wrapper template. An
// input containing any filter operator is treated as an expression the
// user wrote deliberately and passes through unchanged.
func RewriteBare(value, wrapper string) string {
	for _, op := range filterOperators {
		if strings.Contains(value, op) {
			return value
		}
	}
	return strings.Replace(wrapper, "{value}", value, 1)
}
