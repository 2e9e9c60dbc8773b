// Command cupertino crawls, indexes, and serves a local searchable
// knowledge base of Apple platform documentation and sample code.
package main

import (
	"fmt"
	"os"

	"github.com/tijs/cupertino-skill-sub001/cmd/cupertino/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
