// Contentscan resolves declared content sources and reports which files
// changed between scans.
package main

import (
	"github.com/albertocavalcante/contentscan/cmd/contentscan/internal/cli"
)

func main() {
	cli.Execute()
}
