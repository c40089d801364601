/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/freyja-labs/eventkv/cmd/eventkv/cmd"

func main() {
	cmd.Execute()
}
