package main

import "github.com/naka-gawa/colorclick/cmd"

func main() {
	cmd.Execute()
}
