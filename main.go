// ./main.go
package main

import (
	"github.com/xkilldash9x/lancet-mcp/cmd"
)

// main is the entry point for the lancet MCP server.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
