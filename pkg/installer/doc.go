// Package installer drives one recipe through the install state machine:
//
//	Resolving -> Fetching -> VerifyingChecksum -> Installing -> VerifyingBehavior -> Done
//
// Any stage may end in Failed. Stages before Installing never touch the
// prefix. Installing runs the recipe's actions through pkg/actions, records
// the result in pkg/datastore and only then commits, so a failure at any
// point leaves the prefix as it was. The per-package lock is held from
// Fetching through Installing. VerifyingBehavior never fails the install;
// a failing check is reported as installed but unverified.
//
// The package also implements Uninstall and re-running a recipe's check
// against an existing install.
package installer
