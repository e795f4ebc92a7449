// Package recipe loads install recipes and resolves the source for the
// host platform.
//
// A recipe is a TOML or YAML document, chosen by file extension, with
// package metadata, a source table keyed by platform, an ordered list of
// install actions and an optional post-install check. Load reads a recipe
// from a local path or downloads it from a URL, Parse decodes and validates
// it, and Recipe.Resolve picks exactly one source for a platform.
//
// Every problem with the document itself is MALFORMED_RECIPE; a source
// table with no entry for the platform is UNSUPPORTED_PLATFORM.
package recipe
