package main

import (
	"os"

	"github.com/glasspane/glasspane/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
