package main

import (
	"github.com/bracketlab/draftsync/internal/cli"
)

func main() {
	cli.Execute()
}
