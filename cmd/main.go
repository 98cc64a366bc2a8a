package main

import (
	"os"

	"github.com/Arideno/quiz-time/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
