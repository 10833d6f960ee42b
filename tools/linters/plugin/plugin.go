// Package main is the golangci-lint module plugin exposing enumvalidator.
package main

import (
	"golang.org/x/tools/go/analysis"

	"rankwise.app/analyst/tools/linters/enumvalidator"
)

type AnalyzerPlugin struct{}

func (*AnalyzerPlugin) GetAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{enumvalidator.Analyzer}
}

func New(conf any) ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{enumvalidator.Analyzer}, nil
}
