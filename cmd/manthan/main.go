package main

import (
	"manthan/cmd/cmd"
	"manthan/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
