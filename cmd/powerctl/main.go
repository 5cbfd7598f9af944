// Command powerctl inspects and drives the power HAL.
package main

import "github.com/cptspacemanspiff/shamu-power/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
