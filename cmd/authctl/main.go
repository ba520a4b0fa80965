// Package main is the operator CLI for the auth service.
package main

import (
	"fmt"
	"os"

	"github.com/sandeepkv93/elearning-auth-service/internal/tools/authctl"
)

func main() {
	if err := authctl.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(4)
	}
}
