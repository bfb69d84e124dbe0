package models

// Markup inserted around annotated quotes.
const (
	MarkerTag      = "span"
	MarkerClass    = "quote-marker"
	MarkerIDAttr   = "data-quote-id"
	LabelTag       = "sup"
	LabelClass     = "quote-index"
	MarkerSelector = MarkerTag + "." + MarkerClass
	LabelSelector  = LabelTag + "." + LabelClass
)
