// Package database provides the SQLite scan history of a11yscan.
//
// The ScanDB stores:
//   - Complete scan results as JSON, with score and totals as columns
//   - The pages each scan visited, for comparing crawl coverage
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. The history is a single file below the XDG data directory
// 2. The CGO-free driver keeps cross-compilation easy
// 3. WAL mode lets a compare run read while a scan writes
package database
