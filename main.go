package main

import "github.com/timvw/joke-bot/cmd"

func main() {
	cmd.Execute()
}
