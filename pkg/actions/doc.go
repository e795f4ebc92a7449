// Package actions defines the closed set of install actions a recipe may
// declare and the executor that applies them to a prefix.
//
// tapkit only does five things to a prefix: copy a file, copy a directory,
// create a symlink, write a generated script, and change permissions.
// Everything else is orchestration. The Executor interprets an ordered list
// of actions with a single switch into a plan, checking ownership of every
// path it would touch before anything changes. Owned entries are moved
// aside, then the plan runs as one synthfs pipeline that rolls itself back
// when an operation fails or the context is cancelled between actions. A
// successful run returns a Transaction that the caller commits once the
// installed state has been recorded, or rolls back when it cannot be.
package actions
