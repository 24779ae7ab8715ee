package main

import "annotator/internal/cli"

func main() {
	cli.Execute()
}
