// Package history persists pipeline runs and change events to SQLite so the
// CLI can answer "what happened" after the fact. The store doubles as a
// changelog sink; the flat change log file stays authoritative for external
// tooling, this store serves queries.
package history
