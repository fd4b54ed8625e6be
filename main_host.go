//go:build !tinygo

package main

import "pinlock/internal/cli"

func main() {
	cli.Execute()
}
