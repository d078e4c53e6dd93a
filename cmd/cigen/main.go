package main

import (
	"os"

	"github.com/cigen-dev/cigen/cmd/cigen/cmd"
)

func main() {
	os.Exit(cmd.ExecuteOrExit())
}
