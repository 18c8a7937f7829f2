package main

import "resource-store/cmd"

func main() {
	cmd.Execute()
}
