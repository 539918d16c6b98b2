package main

import "github.com/lepinkainen/pharmstock/cmd"

// execute is swappable for testing
var execute = cmd.Execute

func main() {
	execute()
}
