// Package models defines the domain shapes shared across groupsplit.
//
// # Ownership
//
// Groups, members, expenses and settlement transactions are owned by the external
// backend. The types here are the closed, validated view of them that the rest of the
// module works with:
//   - ExpenseTotal, SplitLine: input and output of the split allocator
//   - Expense, ExpensePayload: submitted and stored expense records
//   - Group, Member: membership as returned by the backend
//   - Transaction: a settlement transaction computed by the backend
//   - User: the caller identity carried by a bearer token
//
// # Identity
//
// Participants, payers and transaction endpoints are opaque string ids. Callers pick
// one identity scheme (member id or email) and normalize before any calculation;
// nothing in this module branches on which scheme is in use.
package models
