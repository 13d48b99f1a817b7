// Package storage provides the durable slot store for progress state: named
// blobs persisted in SQLite, with an in-memory variant for tests. A slot
// holds exactly one value; there are no transactions across slots and the
// last writer wins.
package storage
