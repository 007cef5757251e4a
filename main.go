package main

import "github.com/plexaddons/versioncheck/cmd"

func main() {
	cmd.Execute()
}
