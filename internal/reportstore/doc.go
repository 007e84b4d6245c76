// Package reportstore persists finished validation reports on disk so the
// CLI and the HTTP API can list and reopen earlier runs.
package reportstore
