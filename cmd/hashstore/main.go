// Command hashstore is a persistent key-value store on the local disk.
//
// Usage:
//
//	hashstore [flags] <add|get|list|remove|check> [args...]
//
// Values live in {dir}/cache/{hash(key)}; the key to hash mapping lives in
// {dir}/index. See "hashstore --help" for flags.
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, environ()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// environ returns the process environment as a map.
func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
