package main

import (
	"github.com/seahorsehq/seahorse/cmd"
)

func main() {
	cmd.Execute()
}
