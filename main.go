package main

import "github.com/username/salesetl/cmd"

func main() {
	cmd.Execute()
}
