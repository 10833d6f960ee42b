package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"rankwise.app/analyst/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
