package main

import "github.com/scriptwizard-dev/sapwiz-runner/pkg/cli"

func main() {
	cli.Execute()
}
