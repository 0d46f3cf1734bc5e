package main

import "speedtest-core/internal/client/cmd"

func main() {
	cmd.Execute()
}
