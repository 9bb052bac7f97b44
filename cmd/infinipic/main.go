/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/infinipic/cmd/infinipic/cmd"
)

func main() {
	cmd.Execute()
}
