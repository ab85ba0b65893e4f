// Package models contains GORM persistence models for the ledger tables.
// Models are separate from domain entities so the domain stays free of ORM
// concerns. Every ToDomain goes through the domain's Reconstitute functions,
// so a row that breaks an invariant surfaces as corrupted data instead of a
// half-valid aggregate.
//
// Structure:
// - base.go: shared aggregate columns (id, scope, version, timestamps)
// - inventory.go: stock items, stock movements and inventory counts
// - outbox.go: outbox pattern model for event delivery
package models
