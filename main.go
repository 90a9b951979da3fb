package main

import "github.com/Conflux-Chain/confura-pg-pipe/cmd"

func main() {
	cmd.Execute()
}
