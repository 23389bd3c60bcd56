package main

import "healthsense/internal/cli"

func main() {
	cli.Execute()
}
