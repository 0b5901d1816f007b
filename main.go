package main

import "github.com/QuChem/QCFractal/cmd"

func main() {
	cmd.Execute()
}
