package main

import "github.com/bryanchriswhite/tabscout/cmd/tabscout/commands"

func main() {
	commands.Execute()
}
