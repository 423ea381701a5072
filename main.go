package main

import "github.com/larsfn/minterra/cmd"

func main() {
	cmd.Execute()
}
