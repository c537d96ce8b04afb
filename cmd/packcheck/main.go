package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

const (
	bin = "packcheck"

	// Exit codes follow the conventions used by git plumbing commands:
	// https://github.com/git/git/blob/8be77c5de65442b331a28d63802c7a3b94a06c5a/Documentation/technical/api-error-handling.txt#L32-L46
	fatalApplicationExitCode = 128
	cannotStartExitCode      = 129
)

func main() {
	parser := flags.NewNamedParser(bin, flags.Default)
	_, err := parser.AddCommand(
		"verify-pack",
		"Verify a packfile and print its contents.",
		"Scans every entry of the given pack, resolves delta chains and "+
			"prints one line per object in ascending hash order.",
		&CmdVerifyPack{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %s\n", err)
		os.Exit(cannotStartExitCode)
	}

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}

		if _, ok := err.(*flags.Error); ok {
			// go-flags already printed the parse error.
			os.Exit(cannotStartExitCode)
		}

		fmt.Fprintf(os.Stderr, "fatal: %s\n", err)
		os.Exit(fatalApplicationExitCode)
	}
}
