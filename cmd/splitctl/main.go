// Command splitctl runs the split allocator offline and prints the resulting lines.
package main

import (
	"os"

	"github.com/mmynk/groupsplit/pkg/logging"
)

func main() {
	logging.Setup()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
