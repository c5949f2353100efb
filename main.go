package main

import "github.com/markb/bodylog/cmd"

func main() {
	cmd.Execute()
}
