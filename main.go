package main

import "proxyswitch/internal/cli"

func main() {
	cli.Execute()
}
