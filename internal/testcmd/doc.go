// Package testcmd is the process and filesystem substrate the assertion
// harness is built on.
//
// It owns a private working directory, spawns programs inside it, captures
// their standard output, standard error and exit status, and answers the
// filesystem questions assertions need (existence, symlinks, contents, size,
// writability). Relative paths are always resolved against the working
// directory.
//
// The harness only depends on the Collaborator interface; Local is the
// implementation used by real test scripts.
package testcmd
