// Command ganki is the flashcard deck editor CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/ganki/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
