package main

import (
	"os"

	"github.com/gpustack/runtime/cmd/gpustack-runtime/command"
)

func main() {
	os.Exit(command.Execute())
}
