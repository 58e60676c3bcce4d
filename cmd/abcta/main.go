package main

import "github.com/emiliopalmerini/abcta/internal/cli"

func main() {
	cli.Execute()
}
