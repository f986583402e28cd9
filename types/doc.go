// Package types defines the ledger records of the exchainge marketplace.
//
// Records that several engines touch are split into capability-owned
// sub-structs. A Listing's Terms belong to its provider, Verification to
// the verification engine, Sales to the licensing engine and Deactivation
// to the provider or platform authority. The ledger package only ever hands
// a mutator the sub-struct it owns, so a write outside that capability
// cannot be expressed.
//
// Optional bounds are pointers. nil means unset; zero is a value.
package types
