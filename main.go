// Package main is the entry point of the tsdesk command line.
package main

import (
	"github.com/EcoPowerHub/tsdesk/cmd"
)

func main() {
	cmd.Execute()
}
