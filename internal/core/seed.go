package core

import "counterstrike/pkg/domain"

type seedItem struct {
	name         string
	manufacturer string
}

var seedCatalogue = []seedItem{
	{name: "Aspirin", manufacturer: "Smith Pharma Inc."},
	{name: "iPhone", manufacturer: "Apple Inc."},
	{name: "BMW brake pads", manufacturer: "Brembo"},
}

// SeedOrigin is the factory location shared by every seeded product.
func SeedOrigin() domain.Location {
	return domain.AtCoordinates("-29.52974", "24.52815")
}
