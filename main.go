// =============================================================================
// Xero Bills Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   converter convert       - Convert exports to Xero bulk-bill CSV files
//   converter validate      - Report every bad row of an export
//   converter serve         - Start the upload page
//   converter version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core business logic (not for external import)
//   - pkg/           : Shared file utilities
//   - web/           : Embedded upload page
//   - configs/       : Layout profiles of the supported exports
//
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ginjaninja78/xero-bills-converter/cmd"
)

func main() {
	// XERO_* settings may live in a .env file next to the binary.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	cmd.Execute()
}
