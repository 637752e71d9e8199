package main

import "github.com/theirongolddev/claudeline/cmd"

func main() {
	cmd.Execute()
}
