// Command brainbox is the BrainBox electrooculography toolchain.
//
// Usage:
//
//	brainbox [flags] <command> [args]
//
// Commands:
//
//	snip    - Cut annotated recordings into labelled snippet files
//	train   - Fit a classifier on the snippet corpus and save the model
//	eval    - Evaluate classifier accuracy on a held-out corpus split
//	scan    - Detect and classify events in a recorded capture file
//	stream  - Scan a live sample source and report events as they happen
//	version - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/Gasburger/BrainBox/cmd/brainbox/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "brainbox: %v\n", err)
		os.Exit(1)
	}
}
