package main

import (
	"pulse-currency/internal/cli"
)

func main() {
	cli.Execute()
}
