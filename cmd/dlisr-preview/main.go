package main

import (
	"os"

	"vsdlisr/cmd/dlisr-preview/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
