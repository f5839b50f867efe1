package main

import "github.com/vitrin-cms/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
