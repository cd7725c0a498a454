package main

import "github.com/ayusman/mjolnir/cmd/mjolnir/cli"

func main() {
	cli.Execute()
}
