package main

import "github.com/nextlevelbuilder/malrepl/cmd"

func main() {
	cmd.Execute()
}
