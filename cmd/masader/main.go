// Command masader annotates datasets against the catalogue schema and
// proposes them to the catalogue repository.
package main

import "github.com/arbml/masader-form/internal/cli"

func main() {
	cli.Execute()
}
