package main

import (
	"os"

	"github.com/GoliasVictor/grpg/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
