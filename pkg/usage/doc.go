// Package usage records per-request accounting: which model was asked
// for, where the request was routed, how many tokens it consumed, and how
// it ended.
//
// Two backends exist. The memory recorder keeps a bounded ring of recent
// records for the in-process stats endpoint; the sqlite recorder persists
// records across restarts using the pure-Go modernc.org/sqlite driver.
// Recording is best-effort: a failed insert is logged, never surfaced to
// the client.
package usage
