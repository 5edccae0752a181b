// Command playerctl controls a running player daemon.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "playerctl: %v\n", err)
		os.Exit(1)
	}
}
