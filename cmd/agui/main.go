package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/edderleonardo/adk-agui-tutorial/internal/cli"
)

func main() {
	cli.Execute()
}
