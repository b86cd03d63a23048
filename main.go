// The main package for the ymmsync executable.
package main

import (
	"github.com/JakeFAU/ymm-sync/cmd"
)

func main() {
	cmd.Execute()
}
