package main

import "github.com/eslsoft/wordladder/cmd"

func main() {
	cmd.Execute()
}
