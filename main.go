package main

import "acceptance/cli"

func main() {
	cli.Execute()
}
