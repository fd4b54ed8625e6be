//go:build tinygo && baremetal && (rp2040 || rp2350)

package main

import (
	"pinlock/app"
	"pinlock/hal"
)

func main() {
	app.Run(hal.New(), app.DefaultConfig())
}
