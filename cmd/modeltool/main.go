// modeltool inspects the models built into the glove binary and runs them
// offline.
//
// Usage:
//
//	modeltool inspect                        # model geometry and label counts
//	modeltool classify 0.1 0.2 ... 0.0       # classify one 12-field frame
//	modeltool classify --raw "FLEX: ..."     # classify one raw-log line
//	modeltool replay capture.log --press     # run a capture through the controller
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
