package main

import "github.com/Boom-Hacker/nbfc-linux/cmd"

func main() {
	cmd.Execute()
}
