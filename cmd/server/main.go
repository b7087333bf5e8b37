package main

import "github.com/nfrund/parley/cmd/server/cmd"

func main() {
	cmd.Execute()
}
