package docstore

import "github.com/ashendes/pickle-storefront/internal/models"

// SeedCatalog is the launch catalog written into an empty product table
func SeedCatalog() []models.Product {
	return []models.Product{
		{
			ID:              "avakai",
			Name:            "Andhra Avakai",
			SubName:         "Fire. Tradition. Flavor.",
			Description:     "Raw mango • Stone-ground spices • Cold-pressed sesame oil",
			LongDescription: "Our Avakai follows a generations-old Andhra recipe using hand-cut raw mangoes, stone-ground mustard and Guntur red chillies. The pickle matures naturally in sesame oil, developing deep, layered heat and aroma that defines true Avakai.",
			Image:           "/PNG_LOGO.png",
			Images:          []string{"/PNG_LOGO.png"},
			Sizes: []models.ProductSize{
				{Label: "250g", Price: 220, Weight: "250g"},
				{Label: "500g", Price: 420, Weight: "500g"},
				{Label: "1kg", Price: 800, Weight: "1kg"},
			},
			InStock:     true,
			Category:    "Mango Pickle",
			SpiceLevel:  5,
			Features:    []string{"Sun-cured raw mango", "Stone-ground spices", "Cold-pressed gingelly oil", "No preservatives"},
			Ingredients: []string{"Raw Mango", "Red Chilli", "Mustard Seeds", "Sesame Oil", "Salt", "Fenugreek", "Turmeric"},
			Display: &models.DisplayExtras{
				Stats: []models.Stat{
					{Label: "Preservatives", Val: "0%"},
					{Label: "Oil", Val: "Sesame"},
					{Label: "Authenticity", Val: "100%"},
				},
				Details: &models.DetailsSection{
					Title:       "Heritage in a Jar",
					Description: "Our Avakai follows a generations-old Andhra recipe using hand-cut raw mangoes, stone-ground mustard and Guntur red chillies. The pickle matures naturally in sesame oil, developing deep, layered heat and aroma that defines true Avakai.",
					ImageAlt:    "Avakai Pickle Close Up",
				},
				Freshness: &models.FreshnessSection{
					Title:       "Naturally Preserved",
					Description: "No vinegar. No chemicals. Salt, oil, and time do the work. Each batch is prepared seasonally and rested to allow the spices to bloom and bind, ensuring shelf stability through tradition, not shortcuts.",
				},
				BuyNow: &models.BuyNowSection{
					Price:            "₹220",
					Unit:             "per 250g glass jar",
					ProcessingParams: []string{"Sun Cured", "Stone Ground", "Oil Preserved"},
					DeliveryPromise:  "Carefully packed and shipped across India. Leak-proof glass jars.",
					ReturnPolicy:     "Authentic taste guaranteed. Replacement available for transit damage.",
				},
			},
		},
		{
			ID:              "gongura",
			Name:            "Gongura Pickle",
			SubName:         "Tangy. Bold. Authentic.",
			Description:     "Sorrel leaves • Red chillies • Traditional spices",
			LongDescription: "Gongura (sorrel leaves) pickle is a beloved Andhra delicacy known for its distinctive tangy flavor. Each batch uses fresh gongura leaves carefully sorted and mixed with hand-ground spices, creating a perfect balance of sour and spicy notes.",
			Image:           "/pic_logo_main_try.png",
			Images:          []string{"/pic_logo_main_try.png"},
			Sizes: []models.ProductSize{
				{Label: "250g", Price: 240, Weight: "250g"},
				{Label: "500g", Price: 460, Weight: "500g"},
				{Label: "1kg", Price: 880, Weight: "1kg"},
			},
			InStock:     true,
			Category:    "Leaf Pickle",
			SpiceLevel:  4,
			Features:    []string{"Fresh gongura leaves", "Naturally tangy", "Rich in vitamin C", "Authentic Andhra recipe"},
			Ingredients: []string{"Gongura Leaves", "Red Chilli", "Garlic", "Sesame Oil", "Salt", "Fenugreek", "Mustard Seeds"},
		},
		{
			ID:              "tomato",
			Name:            "Tomato Pickle",
			SubName:         "Sweet. Spicy. Delicious.",
			Description:     "Ripe tomatoes • Aromatic spices • Sesame oil",
			LongDescription: "Our tomato pickle combines the natural sweetness of ripe tomatoes with the fiery kick of Andhra spices. Slow-cooked to perfection, this pickle offers a unique flavor profile that complements any meal.",
			Image:           "/PNG_LOGO.png",
			Images:          []string{"/PNG_LOGO.png"},
			Sizes: []models.ProductSize{
				{Label: "250g", Price: 200, Weight: "250g"},
				{Label: "500g", Price: 380, Weight: "500g"},
				{Label: "1kg", Price: 720, Weight: "1kg"},
			},
			InStock:     true,
			Category:    "Vegetable Pickle",
			SpiceLevel:  3,
			Features:    []string{"Ripe, fresh tomatoes", "Perfect sweet-spicy balance", "No artificial colors", "Naturally preserved"},
			Ingredients: []string{"Tomatoes", "Red Chilli", "Garlic", "Curry Leaves", "Sesame Oil", "Salt", "Mustard Seeds"},
		},
	}
}
