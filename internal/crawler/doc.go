// Package crawler harvests perfume records from a shop.
//
// # Architecture
//
// The package is designed around the Harvester type, which runs in two
// phases:
//
//  1. Listing traversal: a breadth-first walk over listing pages, starting
//     from the seed URLs and following pagination links, that collects
//     product references. The walk is bounded by a page cap and never
//     visits a page twice.
//  2. Product harvesting: every discovered product page is fetched,
//     extracted, normalized, validated and handed to a Store.
//
// Design decision: We implement our own crawl loop rather than using a
// crawling framework because:
//  1. Every request must pass the robots and per-domain checks of the guard
//     package before it is sent.
//  2. Failures of a single URL are recorded and skipped, never fatal.
//
// # Failure isolation
//
// Each URL is processed into an outcome: a success or a model.Failure
// tagged with its phase and kind. Only cancellation of the caller's context
// ends a run early; the report collected so far is still returned.
//
// # Usage
//
//	h := crawler.NewHarvester(client, g, db,
//		crawler.WithBaseURL("https://shop.example"),
//		crawler.WithMaxListingPages(20),
//	)
//	report, err := h.Run(ctx, []string{"/collections/perfume"})
package crawler
