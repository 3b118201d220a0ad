package main

import (
	"github.com/dxlander/dxlander/cmd/root"
)

func main() {
	root.Execute()
}
