// Command ftrl trains, applies and inspects FTRL-Proximal models.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ftrl: %v\n", err)
		os.Exit(1)
	}
}
