package main

import "github.com/erickjtorres/app-use/pkg/cli"

func main() {
	cli.Execute()
}
