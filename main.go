/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/longkey1/avcoach/cmd"

func main() {
	cmd.Execute()
}
