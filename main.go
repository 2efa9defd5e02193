package main

import "github.com/jmehdipour/judgment-gateway/cmd"

func main() {
	cmd.Execute()
}
