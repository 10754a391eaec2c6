// Package models defines the core domain models for Fund Flow.
//
// # Models
//
//   - User: an authenticated person, identified by the provider's opaque ID
//   - Fund: a shared pool of members and the transactions logged against it
//   - Transaction: one shared expense with a payer and signed per-member splits
//   - Split: one member's signed net amount for one transaction
//   - Balance: derived per-member aggregate, never persisted
//   - Notification: an in-app inbox entry produced by transaction activity
//
// # Sign convention
//
// A split amount is signed. Positive means the member is owed money for the
// transaction, negative means the member owes money. The payer's own entry nets
// what they advanced against what they consumed, so a balanced transaction's
// splits sum to zero.
//
// # Storage shape
//
// Models are stored as JSON documents. The json tags below are the document field
// names used by every storage backend and by field queries (e.g. "fundId").
package models
