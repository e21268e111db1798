package main

import (
	"github.com/sidkik/snowxfer/cmd"
	"github.com/sidkik/snowxfer/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
