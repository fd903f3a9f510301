// Command licensegate runs the license issuance and validation service.
package main

import (
	"fmt"
	"os"

	"licensegate/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "licensegate: %v\n", err)
		os.Exit(1)
	}
	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "licensegate: %v\n", err)
		os.Exit(1)
	}
}
