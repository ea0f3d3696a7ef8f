// Package main provides the transread CLI tool for reading local, HTTP(S),
// SSH, S3, and GCS resources with transparent decompression.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
