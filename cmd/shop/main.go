package main

import "github.com/matthieukhl/spatula/internal/cmd"

func main() {
	cmd.Execute()
}
