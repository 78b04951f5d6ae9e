package main

import "github.com/fjod/miniapp/cmd/miniapp/cmd"

func main() {
	cmd.Execute()
}
