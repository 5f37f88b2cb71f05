// =============================================================================
// Statement Normalizer - Main Entry Point
// =============================================================================
//
// USAGE:
//   normalizer process       - Normalize every statement in the input directory
//   normalizer serve         - Run the HTTP upload API
//   normalizer categories    - List or extend the category rules
//   normalizer formats       - Print the supported input formats
//   normalizer validate      - Check configuration, profiles and rules
//   normalizer version       - Display the application version
//
// LAYOUT:
//   cmd/           : CLI command definitions (Cobra)
//   internal/      : Extraction, reconciliation, categorization, transport
//   pkg/           : Batch file management utilities
//   profiles/      : Per-bank source profiles (YAML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/statement-normalizer/cmd"
)

func main() {
	cmd.Execute()
}
