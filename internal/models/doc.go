// Package models defines the core domain models for Kopa.
//
// # Models
//
//   - Group: a rotating-savings group with a fixed contribution and frequency
//   - Member: one membership row (a person may hold rows in several groups)
//   - Rotation: the frozen payout order for one full turn of the group
//   - Cycle: one rotation step with a single payout recipient
//   - Transaction: an append-only ledger entry (contribution or payout)
//
// # Design Principles
//
// 1. **IDs, not pointers**: relationships are ID strings (UUID format)
// 2. **Exact money**: amounts use decimal.Decimal, never float64
// 3. **Dates are days**: schedule dates are UTC midnight values
// 4. **Append-only ledger**: transactions change status, they are never deleted
package models
