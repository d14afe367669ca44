// Command datacheck validates the static data tables without starting the
// server. It prints every violation it finds and exits non-zero if there are
// any, so it can gate data changes in CI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/poh/server/internal/data"
)

func main() {
	dir := flag.String("dir", "data/types", "directory of static data tables")
	flag.Parse()

	errs := data.Verify(*dir)
	if len(errs) == 0 {
		fmt.Printf("%s: ok\n", *dir)
		return
	}
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	fmt.Fprintf(os.Stderr, "%d problem(s) found\n", len(errs))
	os.Exit(1)
}
