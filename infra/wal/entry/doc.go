// Package entry implements the inbound write-ahead log: every submit
// and cancel command is framed, checksummed, and appended to a segment
// file before it touches the book. Replay over the segment files
// rebuilds the book deterministically after a restart; segments wholly
// covered by a snapshot are truncated away.
package entry
