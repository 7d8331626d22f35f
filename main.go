package main

import "attest-cli/cmd"

func main() {
	cmd.Execute()
}
