// SPDX-License-Identifier: MPL-2.0

// Package engine dispatches one invocation through a command's handler chain.
//
// Dispatch walks MATCHING, LOADING_GLOBAL, LOADING_COMMAND, VALIDATING,
// EXECUTING and ends in DONE or ERROR. Handlers run strictly one after another
// in registry order, and each folds its result into the shared Context. A
// failure at any step skips the rest of the chain and is handed to exactly one
// error handler: the command's own, else the global one, else the built-in
// default.
//
// Handlers come from a Loader. Each handler file is loaded at most once per
// Engine, and concurrent loads of the same file share one in-flight call.
package engine
