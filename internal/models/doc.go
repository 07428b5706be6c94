// Package models defines the core domain models for dutchpay.
//
// # Models
//
//   - Session: persisted snapshot of one settlement session
//   - LineItem: a normalized receipt line with its quantity and cap
//   - RawItem: a receipt line as reported by the analysis endpoint
//   - Number: a leniently decoded optional numeric field
//
// Participants are identified by phone number strings. There are no user
// accounts; a session token grants access to exactly one session.
//
// # Design Principles
//
// 1. Models carry no behaviour beyond small derived values (LineItem.Total).
// 2. Relationships use indexes and identifier strings, never pointers.
// 3. Snapshots are plain values so they can be copied between the session
//    controller and storage without aliasing.
package models
