package main

import "github.com/notargets/gocut/cmd"

func main() {
	cmd.Execute()
}
