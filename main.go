package main

import "github.com/papapumpkin/rulecover/cmd"

func main() {
	cmd.Execute()
}
