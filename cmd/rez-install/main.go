package main

import "github.com/oshokin/rez-install/cmd/rez-install/cmd"

func main() {
	cmd.Execute()
}
