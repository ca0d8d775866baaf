package main

import "github.com/alphaflow/blobkit/cmd/blobctl/commands"

func main() {
	commands.Execute()
}
