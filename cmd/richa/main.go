// Command richa records where a driver looks during a simulator session and
// reports attention time per stage, task focus and cockpit zone.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
