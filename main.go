package main

import "github.com/Alijeyrad/destek_backend/cmd"

func main() {
	cmd.Execute()
}
