package main

import (
	"context"
	"os"

	"elevenlabs-mcp/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
