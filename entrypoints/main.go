package main

import (
	"github.com/Laisky/laisky-forum/cmd"
)

func main() {
	cmd.Execute()
}
