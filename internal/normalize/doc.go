// Package normalize turns raw note and tag strings scraped from product
// pages into clean, deduplicated lists.
//
// Every function is pure and total: any input, including nil, yields a valid
// (possibly empty) result. Normalizing an already normalized list returns it
// unchanged.
//
// Processing of one raw item:
//
//  1. Items that are noise as a whole ("n/a", "none", "-", ...) are dropped.
//  2. The item is split on , ; / | + and on the words "and" and "und".
//  3. Each token loses a leading section label ("Top Notes:", "Duftfamilie -")
//     and boundary punctuation, and its inner whitespace is collapsed.
//  4. Noise tokens and case-insensitive duplicates are dropped. The first
//     spelling seen is kept.
//
// Scent families are additionally mapped to canonical English names
// ("Blumig" becomes "Floral") and deduplicated again.
package normalize
