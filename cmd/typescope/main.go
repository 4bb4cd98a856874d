package main

import "typescope/internal/cli"

func main() {
	cli.Execute()
}
