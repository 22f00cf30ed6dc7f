package docstore

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ashendes/pickle-storefront/internal/models"
)

var defaultProcessingParams = []string{"Sun Cured", "Stone Ground", "Oil Preserved"}

// ResolveDisplay fills every optional display block of p with its default.
// Products leave the document store resolved, so no reader has to.
func ResolveDisplay(p *models.Product) {
	if p.Display == nil {
		p.Display = &models.DisplayExtras{}
	}
	d := p.Display

	if d.Stats == nil {
		d.Stats = []models.Stat{}
	}
	if d.Details == nil {
		d.Details = &models.DetailsSection{}
	}
	if d.Details.Title == "" {
		d.Details.Title = p.Name
	}
	if d.Details.Description == "" {
		d.Details.Description = p.LongDescription
	}
	if d.Details.ImageAlt == "" {
		d.Details.ImageAlt = p.Name
	}

	if d.Freshness == nil {
		d.Freshness = &models.FreshnessSection{}
	}
	if d.Freshness.Title == "" {
		d.Freshness.Title = "Naturally Preserved"
	}
	if d.Freshness.Description == "" {
		d.Freshness.Description = "Preserved with traditional methods"
	}

	if d.BuyNow == nil {
		d.BuyNow = &models.BuyNowSection{}
	}
	b := d.BuyNow
	if b.Price == "" || b.Unit == "" {
		price, unit := entryPrice(p)
		if b.Price == "" {
			b.Price = price
		}
		if b.Unit == "" {
			b.Unit = unit
		}
	}
	if len(b.ProcessingParams) == 0 {
		b.ProcessingParams = append([]string(nil), defaultProcessingParams...)
	}
	if b.DeliveryPromise == "" {
		b.DeliveryPromise = "Carefully packed and shipped across India."
	}
	if b.ReturnPolicy == "" {
		b.ReturnPolicy = "Authentic taste guaranteed."
	}

	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.Ingredients == nil {
		p.Ingredients = []string{}
	}
}

// entryPrice describes the cheapest size, e.g. "₹200" "per 250g"
func entryPrice(p *models.Product) (string, string) {
	if len(p.Sizes) == 0 {
		return "₹220", "per 250g"
	}
	cheapest := p.Sizes[0]
	for _, s := range p.Sizes[1:] {
		if s.Price < cheapest.Price {
			cheapest = s
		}
	}
	return "₹" + formatRupees(cheapest.Price), fmt.Sprintf("per %s", cheapest.Label)
}

func formatRupees(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
