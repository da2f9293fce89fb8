// Command sqllint checks that every inline SQL constant starts with a unique
// "--sql <uuid>" marker, which SQLRunner requires at runtime.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"internal/sqlinline"}
	}

	violations, err := lintTargets(targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: invalid SQL audit markers")
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", v)
		}
		os.Exit(1)
	}
}
