// Command cmsearchctl queries a running cmsearch server.
package main

import (
	"os"

	"github.com/kailas-cloud/cmsearch/cmd/cmsearchctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
