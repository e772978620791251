package main

import (
	"log/slog"
	"os"

	api "Scrumble"
)

func main() {
	if err := api.Run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
