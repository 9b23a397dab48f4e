// The main package for the prober executable.
package main

import (
	"github.com/JakeFAU/catalog-prober/cmd"
)

func main() {
	cmd.Execute()
}
