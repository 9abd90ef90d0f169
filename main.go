package main

import (
	"github.com/sitepatch/sitepatch/cmd"
	"github.com/sitepatch/sitepatch/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
