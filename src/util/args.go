package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the command line configuration for the sirgen driver.
type Options struct {
	Src     string // Path to the serialized SIR program. Empty means read from stdin.
	Out     string // Path to the output LLIR module. Empty means write to stdout.
	Threads int    // Value of -t, range-checked by ParseArgs. The driver lowers one program from one file and does not read it.
	Verbose bool   // Set true if the driver should print the generated module to stdout in addition to Out.
	Check   bool   // Set true to run the generated module through verify.Check before writing it out.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64 // Upper bound accepted for -t.
const appVersion = "sirgen 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments.
func ParseArgs() (Options, error) {
	opt := Options{Threads: 1}
	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		case "-t":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			t, err := strconv.Atoi(args[i1+1])
			if err != nil {
				return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
			}
			if t < 1 || t > maxThreads {
				return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
			}
			opt.Threads = t
			i1++
		case "-check":
			opt.Check = true
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			opt.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "-o\tPath to write the generated LLIR module to. Defaults to stdout.")
	_, _ = fmt.Fprintf(w, "-t\tThread count, must be in range [1, %d]. Accepted but unused: the driver lowers a single program file.\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-check\tRun the generated module through the LLVM text parser before writing it out.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: also print the generated module to stdout.")
	_ = w.Flush()
}
