package main

import "surgeq/cmd"

func main() {
	cmd.Execute()
}
