// Package extract pulls perfume data out of shop HTML.
//
// Design decision: pages are scanned as a token stream from the permissive
// golang.org/x/net/html tokenizer instead of a DOM tree, because:
//  1. Shop markup is frequently broken and a token stream never fails.
//  2. The extractors only need flat signals: anchors, attributes and
//     text lines.
//
// Every exported function is total. Malformed markup or JSON-LD yields fewer
// results, never an error.
package extract
