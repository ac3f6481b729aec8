// cmd/tagpoller/main.go
package main

import (
	"os"

	"github.com/tamzrod/tag-poller/cmd/tagpoller/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
