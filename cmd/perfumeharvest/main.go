// Package main provides the entry point for the PerfumeHarvest CLI.
//
// PerfumeHarvest walks the listing pages of perfume shops, visits every
// product page it finds and stores normalized perfume records in a local
// SQLite database. It honors robots.txt and spaces requests per host.
//
// Usage:
//
//	perfumeharvest harvest <site-or-url>...
//	perfumeharvest list
//	perfumeharvest runs <site>
//
// See --help for all available options.
package main

// main is the entry point for PerfumeHarvest.
func main() {
	Execute()
}
