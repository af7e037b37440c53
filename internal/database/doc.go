// Package database provides SQLite-based storage for perfumeharvest.
//
// PerfumeDB stores:
//   - Harvested perfume records, upserted by perfume_id
//   - Run reports for every harvest, keyed by run ID
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. The database is a single file under the XDG data directory
// 2. The CGO-free driver keeps cross-compilation simple
package database
