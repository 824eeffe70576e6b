/*
 * Filename: main.go
 * Path: modisco/cmd
 */

package main

import (
	"strings"

	logging "github.com/op/go-logging"
	"github.com/tanghaibao/modisco"
)

var log = logging.MustGetLogger("main")

// banner prints the separate steps
func banner(message string) {
	message = "* " + message + " *"
	log.Noticef(strings.Repeat("*", len(message)))
	log.Noticef(message)
	log.Noticef(strings.Repeat("*", len(message)))
}

// main is the entrypoint for the entire program, routes to commands
func main() {
	logging.SetBackend(modisco.BackendFormatter)
	logging.SetLevel(logging.NOTICE, "")
	Execute()
}
