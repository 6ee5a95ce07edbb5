package main

import (
	"os"

	"github.com/explainify/explainify/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
