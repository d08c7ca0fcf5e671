// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when a command tree changes on disk.
//
// The watcher registers every visible directory under the root with
// fsnotify and reacts to changes of handler files (by extension) and of
// directories, since adding or renaming a directory adds or renames a
// command. Events inside a debounce window are coalesced into one callback
// carrying every changed path.
package watch
