package main

import "github.com/khanhnv2901/gh-recon/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
