package main

import "codeberg.org/isvind/gpufanctl/cmd"

func main() {
	cmd.Execute()
}
