// Command sampler plays and renders the sample-playback instrument.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
