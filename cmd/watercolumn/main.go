// Command watercolumn runs the water column measurement pipelines from the
// terminal.
package main

import "watercolumn/internal/cli"

func main() {
	cli.Execute()
}
