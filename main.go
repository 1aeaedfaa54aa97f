package main

import "carprice/cli"

func main() {
	cli.Execute()
}
