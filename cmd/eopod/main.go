package main

import "github.com/erfanzar/eopod/cmd"

func main() {
	cmd.Execute()
}
