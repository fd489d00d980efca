// SPDX-License-Identifier: MIT

// Package checkpoint persists irt model snapshots in a Badger database so
// that long fits can be resumed.
//
// Snapshots are stored as JSON under "irt/<run>/<iteration>" with the
// iteration zero-padded, so keys of one run sort by iteration.
package checkpoint
