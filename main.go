package main

import "github.com/veighnsche/darkwall-comfyui/cmd"

func main() {
	cmd.Execute()
}
