package main

import "martianoff/visitorgen/cmd/visitorgen/commands"

func main() {
	commands.Execute()
}
