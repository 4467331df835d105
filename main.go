package main

import "github.com/RyanBlaney/cry-sonar/cmd"

func main() {
	cmd.Execute()
}
