package main

import "github.com/cododel/directus-alto/cmd"

func main() {
	cmd.Execute()
}
