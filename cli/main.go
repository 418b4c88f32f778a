package main

import (
	"os"

	_ "github.com/satishbabariya/tablemap/adapter/rest"
	_ "github.com/satishbabariya/tablemap/adapter/sqladapter"

	"github.com/satishbabariya/tablemap/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
