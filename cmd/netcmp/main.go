// Command netcmp compares two netlists for topological (and, where
// declared, electrical-property) equivalence.
package main

import "github.com/opentracelab/netcmp/cmd/netcmp/cmd"

func main() {
	cmd.Execute()
}
