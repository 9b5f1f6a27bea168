package main

import "github.com/beacon-cli/beacon-updater/cmd/beacon-packager/cmd"

func main() {
	cmd.Execute()
}
