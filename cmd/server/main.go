package main

import (
	"fmt"
	"os"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	if err := a.Run(":" + a.Cfg.Port); err != nil {
		a.Log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
