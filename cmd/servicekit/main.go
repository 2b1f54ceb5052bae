// Command servicekit runs the HTTP service and manages its database schema.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "servicekit:", err)
		os.Exit(1)
	}
}
