package main

import (
	"fmt"
	"os"

	"sirgen/src/codegen"
	"sirgen/src/sir"
	"sirgen/src/util"
	"sirgen/src/verify"
)

// run drives one SIR-to-LLIR lowering: read the program, lower it, check
// it, write it out. Behaviour is entirely governed by opt.
func run(opt util.Options) error {
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read SIR program: %s", err)
	}

	prog, err := sir.DecodeProgram([]byte(src))
	if err != nil {
		return fmt.Errorf("could not decode SIR program: %s", err)
	}

	g := codegen.NewGenerator()
	mod, err := g.Generate(prog)
	if err != nil {
		return fmt.Errorf("code generation error: %s", err)
	}

	if opt.Check {
		if err := verify.Check(mod); err != nil {
			return fmt.Errorf("generated module failed verification: %s", err)
		}
	}

	if opt.Verbose {
		fmt.Println(mod)
	}

	var out *os.File
	if len(opt.Out) > 0 {
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("could not open output file: %s", err)
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				fmt.Println(err)
			}
		}(f)
		out = f
	}
	return util.WriteOutput(out, mod)
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}
