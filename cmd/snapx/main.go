package main

import "github.com/oshokin/snapx/cmd/snapx/cmd"

func main() {
	cmd.Execute()
}
