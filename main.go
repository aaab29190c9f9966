package main

import "github.com/lightorchestralab/lightorchestra/cmd"

func main() {
	cmd.Execute()
}
