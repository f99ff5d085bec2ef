// Package main is the entry point for the sqldispatch CLI.
// It loads a .env file from the working directory, if any, and runs the
// command-line interface.
package main

import (
	"github.com/joho/godotenv"

	"sqldispatch/cli/cmd"
)

func main() {
	_ = godotenv.Load()
	cmd.Execute()
}
