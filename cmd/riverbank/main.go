package main

import "github.com/riverbank-network/riverbank/internal/cli"

func main() {
	cli.Execute()
}
