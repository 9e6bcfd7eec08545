// Command sudoai submits and administers media jobs and runs the worker
// process for whichever dispatch backend the environment selects.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
