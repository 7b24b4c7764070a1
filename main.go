package main

import "github.com/wayfind/intent-engine/cmd"

func main() {
	cmd.Execute()
}
