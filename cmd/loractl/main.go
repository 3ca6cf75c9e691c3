package main

import (
	"os"

	"github.com/embedops/loractl/cmd/loractl/app"
)

func main() {
	cmd := app.NewLoractlCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
