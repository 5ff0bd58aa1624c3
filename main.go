package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	root := NewRootCommand(SetupApp)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
