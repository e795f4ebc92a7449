// Package testutil provides utilities for testing tapkit components.
//
// Key components:
//   - Env: isolated state, cache and prefix directories below t.TempDir
//   - ArchiveEntry, TarGz, Tar, Zip: in-memory artifact builders
//   - ArtifactServer: httptest server for downloads, with blocking support
//   - Maiass fixtures: a small shell-script package used across tests
//
// All test data is defined inline, not in external files. Each test gets
// its own directories and server, with no shared state.
package testutil
