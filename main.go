package main

import "memory-tracker-backend/cmd"

func main() {
	cmd.Run()
}
