package main

import "github.com/andresmejia3/posture/cmd"

func main() {
	cmd.Execute()
}
