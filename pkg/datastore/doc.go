// Package datastore provides a high-level interface for managing tapkit's
// internal state on the filesystem: one JSON record per installed package
// and one advisory lock file per package. It abstracts away the physical
// layout of the state directory, providing a clean API for the installer.
package datastore
