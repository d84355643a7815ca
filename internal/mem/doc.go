// Package mem models the host module's mapped memory as an addressable
// image.
//
// The resolver and the interception layer never assume a particular
// backing: Snapshot wraps a captured byte buffer (tests, offline
// analysis of a dumped module), while Live addresses the current
// process's mapped memory directly, flipping page protection around
// writes so patch stores land on read-only code pages.
//
// Addresses are absolute within the image's address space. All reads
// and writes are bounds-checked against the image.
package mem
