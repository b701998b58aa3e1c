// Package main is the entry point for the registry server and CLI.
package main

func main() {
	Execute()
}
