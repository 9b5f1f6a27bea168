package main

import "github.com/beacon-cli/beacon-updater/cmd/beacon-updater/cmd"

func main() {
	cmd.Execute()
}
