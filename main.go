package main

import "github.com/tanq16/tgrelay/cmd"

func main() {
	cmd.Execute()
}
