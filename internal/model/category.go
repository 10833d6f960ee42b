package model

// Category names one kind of collected signal.
type Category string

const (
	CategoryTechnical   Category = "technical"
	CategoryKeyword     Category = "keyword"
	CategoryCompetition Category = "competition"
	CategoryContent     Category = "content"
)

// AllCategories is the fixed presentation order.
var AllCategories = []Category{
	CategoryTechnical,
	CategoryKeyword,
	CategoryCompetition,
	CategoryContent,
}

// ResultKey is the field name the category's metrics use in a result document.
func (c Category) ResultKey() string {
	return string(c) + "_analysis"
}
