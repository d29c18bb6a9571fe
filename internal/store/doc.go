// Package store provides the SQLite-backed KeyedStore.
//
// Every ledger entry is one row of kv_entries:
//   - key: canonical key bytes from internal/keyspace
//   - value: canonical JSON record bytes
//   - digest: SHA-256 over key and value with domain separation (ir.EntryDigest)
//
// # Transactions
//
// Update wraps the callback in a database transaction and commits only when
// the callback succeeds. A registry operation that writes a session and a
// balance therefore lands both rows or neither.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite allows one writer; invocations serialize
//
// The schema is applied by golang-migrate from the embedded migrations
// directory when the store opens.
package store
