// SPDX-License-Identifier: MIT

// Package core defines a small in-memory graph of string-identified vertices
// and ID-stamped edges.
//
// lvfit uses it to hold dependency graphs between fit parameters: a tie
// "f1.Sigma = 2*f0.Sigma" becomes the directed edge f0.Sigma → f1.Sigma, and
// package dfs orders those edges so every tie is evaluated after the values
// it reads.
//
// Guarantees:
//   - Deterministic: Vertices() is sorted by ID, Neighbors() by edge ID.
//   - Thread-safe: a single sync.RWMutex guards vertices, edges and adjacency.
//   - No panics on user input; failures surface as sentinel errors.
//
// Errors:
//
//	ErrEmptyVertexID  - vertex ID is the empty string.
//	ErrVertexNotFound - requested vertex does not exist.
//	ErrLoopNotAllowed - self-loop when loops are disabled.
package core
