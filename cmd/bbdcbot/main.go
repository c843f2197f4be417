package main

import "github.com/example/bbdc-bot/cmd"

func main() {
	cmd.Execute()
}
