// Package main provides the entry point for the applocate CLI.
package main

import (
	"os"

	"github.com/aalex954/applocate-sub001/cmd/applocate/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
