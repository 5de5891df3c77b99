package main

import (
	"os"

	"github.com/scan-io-git/triage/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
