package main

import (
	"os"

	"github.com/msto63/callexpr/cmd/callexpr/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
