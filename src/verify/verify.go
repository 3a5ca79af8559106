// Package verify sanity-checks a generated LLIR module by round-tripping
// it through the system LLVM parser. It plays the same role
// ir/llvm/transform.go's TargetMachine setup plays in the teacher: an
// optional, best-effort correctness gate wired to the one third-party
// dependency the teacher carries, tinygo.org/x/go-llvm, rather than the
// core code path.
package verify

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

// Check parses moduleText as LLVM IR and reports the first parse error
// encountered, or nil if it parses cleanly. It does not run any LLVM pass
// or verifier beyond parsing: this core's job ends at producing valid
// LLIR text, not at optimizing or executing it.
func Check(moduleText string) (err error) {
	// llvm.ParseIR panics on malformed input from some go-llvm versions
	// rather than only returning an error; recover so a bad module is
	// reported the same way a well-formed-but-rejected one is.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verify: llvm parser panicked: %v", r)
		}
	}()

	ctx := llvm.NewContext()
	defer ctx.Dispose()

	buf, err := llvm.NewMemoryBufferFromString(moduleText, "sirgen-module")
	if err != nil {
		return fmt.Errorf("verify: creating memory buffer: %w", err)
	}
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return fmt.Errorf("verify: parsing generated module: %w", err)
	}
	defer mod.Dispose()
	return nil
}
