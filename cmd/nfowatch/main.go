package main

import "github.com/vietddude/nfowatch/internal/cli"

func main() {
	cli.Execute()
}
