package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/grantaxiom/internal/cli"
)

func main() {
	if err := cli.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
