package main

import "musicapi/cmd"

func main() {
	cmd.Execute()
}
