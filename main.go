package main

import (
	"os"

	"github.com/robsoninsights/robsoninsights/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
