package models

// ProductSize is one purchasable variant of a product
type ProductSize struct {
	Label  string  `json:"label"`
	Price  float64 `json:"price"`
	Weight string  `json:"weight"`
}

// Stat is a short label/value pair shown on the product hero
type Stat struct {
	Label string `json:"label"`
	Val   string `json:"val"`
}

// DetailsSection describes the long-form product story block
type DetailsSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageAlt    string `json:"imageAlt"`
}

// FreshnessSection describes how the product is preserved
type FreshnessSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// BuyNowSection is the purchase call-to-action block
type BuyNowSection struct {
	Price            string   `json:"price"`
	Unit             string   `json:"unit"`
	ProcessingParams []string `json:"processingParams"`
	DeliveryPromise  string   `json:"deliveryPromise"`
	ReturnPolicy     string   `json:"returnPolicy"`
}

// DisplayExtras groups the optional presentation blocks of a product.
// Stored documents may omit any of them; readers always see them filled.
type DisplayExtras struct {
	Stats     []Stat            `json:"stats,omitempty"`
	Details   *DetailsSection   `json:"detailsSection,omitempty"`
	Freshness *FreshnessSection `json:"freshnessSection,omitempty"`
	BuyNow    *BuyNowSection    `json:"buyNowSection,omitempty"`
}

// Product represents a catalog entry
type Product struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	SubName         string         `json:"subName"`
	Description     string         `json:"description"`
	LongDescription string         `json:"longDescription"`
	Image           string         `json:"image"`
	Images          []string       `json:"images"`
	Sizes           []ProductSize  `json:"sizes"`
	InStock         bool           `json:"inStock"`
	Category        string         `json:"category"`
	SpiceLevel      int            `json:"spiceLevel"`
	Features        []string       `json:"features"`
	Ingredients     []string       `json:"ingredients"`
	Display         *DisplayExtras `json:"display,omitempty"`
}

// Size returns the variant with the given label
func (p *Product) Size(label string) (ProductSize, bool) {
	for _, s := range p.Sizes {
		if s.Label == label {
			return s, true
		}
	}
	return ProductSize{}, false
}

// LineItem builds a cart line for qty units of the given size, locking the current price
func (p *Product) LineItem(sizeLabel string, qty int) (LineItem, bool) {
	s, ok := p.Size(sizeLabel)
	if !ok {
		return LineItem{}, false
	}
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     s.Price,
		Quantity:  qty,
		Size:      s.Label,
		Image:     p.Image,
	}, true
}

// SaveProductResponse is returned by POST /api/admin/products
type SaveProductResponse struct {
	Message    string  `json:"message"`
	Product    Product `json:"product"`
	AuthMethod string  `json:"authMethod"`
}
