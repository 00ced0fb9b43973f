package main

import "github.com/Tiliavir/ots/cmd"

func main() {
	cmd.Execute()
}
