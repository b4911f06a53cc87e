package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// PathList returns the ':'-separated elements of an environment variable.
// An unset or empty variable yields nil.
func PathList(name string) []string {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	return strings.Split(v, ":")
}

// PrintEnv writes each variable to w, one path element per line for
// variables holding a ':'-separated list.
func PrintEnv(w io.Writer, names ...string) error {
	for _, n := range names {
		elems := PathList(n)
		if len(elems) == 0 {
			elems = []string{""}
		}
		for _, e := range elems {
			if _, err := fmt.Fprintln(w, e); err != nil {
				return err
			}
		}
	}
	return nil
}
