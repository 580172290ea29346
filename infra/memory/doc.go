// Package memory provides the primitives for object reuse and safe
// reclamation under the book's single-writer model: a typed pool, a
// lock-free SPSC retire ring, and global epoch tracking. Records
// removed from the arenas are parked in the ring and recycled to the
// pool only once every epoch reader has moved past their retirement
// epoch, so lock-free readers never observe a reused record.
package memory
