// SPDX-License-Identifier: MIT

// Package fitfunc models fit functions as trees and keeps the bookkeeping
// of parameter ties, fixes and bounds across them.
//
// A *Leaf wraps one Kernel (a peak shape, a background polynomial, a user
// formula) and owns its parameter values. A *Composite owns an ordered list
// of children and evaluates to their sum. Inside a composite, parameter
// "Sigma" of child 1 is addressed as "f1.Sigma"; nested composites stack
// prefixes ("f2.f0.Height").
//
// Constraints:
//
//   - Tie: the parameter's value is an expression over other parameters
//     ("f1.Sigma" = "f0.Sigma*2"). A parameter has at most one tie in the
//     whole tree; tying again replaces the old tie wherever it was held.
//   - Fix: the parameter keeps its current value. Fixing removes a tie and
//     tying releases a fix.
//   - Bound: an inequality such as "0<Sigma<5".
//
// Bulk operations on a composite: TieAll ties one local name in every
// child to child 0, FixAll fixes it everywhere (stopping at the first child
// without it, earlier children stay fixed), ConstrainAll applies bounds to
// every leaf that has the names and reports the leaves it skipped.
//
// Flatten turns a tree into the form a fit driver consumes: parameters in
// depth-first, child-index ascending order with their free/fixed flags and
// bounds, and fully qualified ties ordered by dependency. Apply writes the
// driver's fitted values and errors back in the same order.
//
// Removing a child shifts the indices of the children after it. Ties held
// anywhere above the removed child are renumbered or dropped, and ParamRefs
// taken through the composite become stale and fail with
// ErrUnknownParameter.
//
// A tree is not safe for concurrent mutation.
package fitfunc
