package main

import (
	"github.com/hytalede/statistics/internal/cmd"
)

func main() {
	cmd.Execute()
}
