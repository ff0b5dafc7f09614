// Package marker extracts control markers from streamed text.
//
// # Overview
//
// Generative backends embed literal control tags like <END_CHAT> or
// <EMOTE_CALM> in their replies. Because replies arrive as arbitrary
// fragments, a tag can be split across any number of chunk boundaries.
// This package scans fragments incrementally, strips every complete tag
// from the visible text, and reports which tags were found.
//
// # Scanning
//
// Build a Set once from the marker table, then thread the carry string
// through successive Scan calls:
//
//	set, err := marker.NewSet([]marker.Marker{
//	    {Name: "END_CHAT", Literal: "<END_CHAT>"},
//	    {Name: "EMOTE_CALM", Literal: "<EMOTE_CALM>"},
//	})
//
//	carry := ""
//	for fragment := range stream {
//	    visible, found, next := set.Scan(fragment, carry)
//	    carry = next
//	    emit(visible)
//	    record(found)
//	}
//	emit(set.Flush(carry))
//
// # Carry Semantics
//
// When a fragment ends in a strict prefix of some literal (for example
// "...<END_CH"), the prefix is withheld from the visible output and
// returned as the carry. The next Scan call prepends it to the next
// fragment, so a tag split across chunks is still recognized exactly
// once. The carry is bounded by the longest literal in the table.
//
// A carry that never completes a tag was genuine output: Flush returns
// it verbatim at end of stream.
//
// # Matching Rules
//
// At each position the longest matching literal wins, so tables may
// contain literals that prefix each other (<END> and <END_CHAT>).
// Matching is exact and case-sensitive; literals must be non-empty and
// unique. Scan is a pure function of its inputs and safe for concurrent
// use across sessions.
package marker
