// Package harness is an assertion library for testing command-line
// programs by their observable behavior: exit status, captured standard
// output and error, and the files they leave behind.
//
// A Test owns a private working directory (the process changes into it on
// creation) and a testcmd.Collaborator that spawns programs there. Every
// Must* check either returns silently or prints full diagnostic context and
// terminates the test. Termination goes through three exits:
//
//   - Pass: exit status 0
//   - Fail: exit status 1, the program misbehaved
//   - NoResult: exit status 2, the test could not judge (e.g. a skip)
//
// # Running programs
//
//	t, err := harness.New(harness.WithProgram("./mytool"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = t.Run(ctx,
//	    harness.WithOptions(harness.Line("--verbose")),
//	    harness.WithArguments(harness.List("input file.txt")),
//	    harness.ExpectStdout("done\n"),
//	)
//	if err != nil {
//	    log.Fatal(err) // the program could not be spawned at all
//	}
//	t.MustExist("out.txt")
//	t.Pass()
//
// Run expects status 0 and empty stderr and leaves stdout unchecked unless
// told otherwise. Run only returns an error for faults of the harness itself
// (spawn failure, cancelled context); mismatches never come back as errors.
//
// # Skips
//
// SkipTest reports NoResult unless TESTCOMMON_PASS_SKIPS is set to a value
// other than "" or "0", in which case the skip counts as a pass.
package harness
