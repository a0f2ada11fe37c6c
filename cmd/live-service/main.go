// Package main is the live-service entry point (HTTP + stream API).
package main

import (
	"log"

	"github.com/grace0927/sccny-live/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
