package main

import "riftstats/cmd"

func main() {
	cmd.Execute()
}
