package domain

// Part is one line of a product's bill-of-parts.
type Part struct {
	Name         string
	Measurements *string
	UnitQuantity int // required per unit of product
}

type Product struct {
	ID    string
	Name  string
	Parts []Part
}
