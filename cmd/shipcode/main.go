package main

import "github.com/vvatanabe/shipcode/internal/cmd"

func main() {
	cmd.Execute()
}
