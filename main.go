package main

import "github.com/metal-toolbox/dpuctl/cmd"

func main() {
	cmd.Execute()
}
