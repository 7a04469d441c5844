// Package main is the entry point for maintforms, the field configuration
// service of the maintenance modules.
package main

func main() {
	Execute()
}
