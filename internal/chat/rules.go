package chat

import (
	"regexp"
	"strings"
)

var (
	teluguScript    = regexp.MustCompile(`[\x{0C00}-\x{0C7F}]`)
	romanizedTelugu = regexp.MustCompile(`(?i)\b(namasthe|namaskaram|meeku|mana|maa|daggara|deggara|ye|unnai|unnayi|naku|entha|kaaram|karam|chaala|baga|istam|ishtam|kavali|kavalaa|ante|achar|pickles)\b`)
)

// IsTelugu reports whether message is written in Telugu script or uses
// common romanized Telugu words
func IsTelugu(message string) bool {
	return teluguScript.MatchString(message) || romanizedTelugu.MatchString(message)
}

type rule struct {
	keywords []string
	extra    func(msg string) bool
	english  string
	telugu   string
}

func (r rule) matches(msg string) bool {
	for _, k := range r.keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return r.extra != nil && r.extra(msg)
}

// rules are tried in order; the first match answers
var rules = []rule{
	{
		keywords: []string{"pickle", "ఆచార", "achar", "available", "have", "unnai", "unnayi", "ye ", "daggara", "deggara"},
		english:  "We have 3 delicious pickles:\n1. Avakai (Very Spicy) - ₹220-₹750\n2. Gongura (Medium Spicy) - ₹200-₹720\n3. Lemon (Mild) - ₹180-₹650",
		telugu:   "Maa daggara 3 rakala acharlu unnayi:\n1. Avakaya (chaala kaaram) - ₹220-₹750\n2. Gongura (madhyama kaaram) - ₹200-₹720\n3. Nimmakaya (takkuva kaaram) - ₹180-₹650",
	},
	{
		keywords: []string{"spicy", "hot", "కారం", "kaaram", "karam"},
		extra: func(msg string) bool {
			return strings.Contains(msg, "baga") && strings.Contains(msg, "istam")
		},
		english: "Love spicy food? Try our Avakai pickle! It's our spiciest option with a spice level of 5/5! 🌶️",
		telugu:  "Meeku kaaram ishtama? Avakaya acharnu sifarsu chesthunnanu! Idi maa spicy special! 🌶️",
	},
	{
		keywords: []string{"mild", "beginner", "తక్కువ", "takkuva"},
		english:  "For mild spice, our Lemon pickle is perfect! It's tangy and not too spicy! 😊",
		telugu:   "Takkuva masala kavalaa? Nimmakaya achar sarainadi! Chaala ruchiga untundi! 😊",
	},
	{
		keywords: []string{"gongura", "గోంగూర"},
		english:  "Gongura pickle! Rich in iron, tangy and medium spicy. Sizes: 250g (₹200), 500g (₹380), 1kg (₹720)",
		telugu:   "Gongura achar! Chaala aarogyakaramainadi, iron pushkalanga untundi. Madhyama kaaram. 250g: ₹200, 500g: ₹380, 1kg: ₹720",
	},
	{
		keywords: []string{"avakai", "avakaya", "అవకాయ"},
		english:  "Avakai pickle! Traditional Andhra mango pickle - very spicy! Sizes: 250g (₹220), 500g (₹400), 1kg (₹750)",
		telugu:   "Avakaya achar! Sampradaya Andhra mamidi achar - chaala kaaram! 250g: ₹220, 500g: ₹400, 1kg: ₹750",
	},
	{
		keywords: []string{"lemon", "నిమ్మ"},
		english:  "Lemon pickle! Mild and tangy. Sizes: 250g (₹180), 500g (₹340), 1kg (₹650)",
		telugu:   "Nimmakaya achar! Takkuva masala, chaala ruchi. 250g: ₹180, 500g: ₹340, 1kg: ₹650",
	},
	{
		keywords: []string{"price", "cost", "ధర"},
		english:  "Prices:\n- Avakai: ₹220/250g\n- Gongura: ₹200/250g\n- Lemon: ₹180/250g\nLarger sizes available!",
		telugu:   "Dharalu:\n- Avakaya: ₹220/250g\n- Gongura: ₹200/250g\n- Nimmakaya: ₹180/250g\nPedda sizes kooda unnayi!",
	},
	{
		keywords: []string{"hi", "hello", "నమస్కారం", "హలో", "namasthe", "namaskaram", "namaste"},
		english:  "Hello! How can I help you today? Ask me about our pickles! 🌶️",
		telugu:   "Namaskaram! Meeku ela sahayam cheyagalanu? Maa acharla gurinchi adagandi! 🌶️",
	},
	{
		keywords: []string{"recommend", "suggest", "సిఫార్సు", "sifarsu", "kavali", "kavalaa"},
		english:  "What's your spice preference? Very spicy → Avakai, Medium → Gongura, Mild → Lemon!",
		telugu:   "Meeku entha kaaram kavali? Chaala kaaram ante Avakaya, madhyama ante Gongura, takkuva ante Nimmakaya!",
	},
	{
		keywords: []string{"help", "sahayam", "సహాయం"},
		english:  "Hello! We have 3 types of pickles - Avakai, Gongura, and Lemon. Ask me about spice levels, prices, or recommendations! 🌶️",
		telugu:   "Namaskaram! Maa daggara 3 rakala acharlu unnayi - Avakaya, Gongura, Nimmakaya. Kaaram levels, dharalu, leda sifarsu gurinchi adagandi! 🌶️",
	},
	{
		keywords: []string{"buy", "order", "purchase", "konali"},
		english:  "You can order directly from our website! Add to cart and checkout. Free shipping on orders above ₹500! 🛒",
		telugu:   "Meeru maa website nundi order cheyochu! Cart lo add chesi checkout cheyandi. Free shipping ₹500 paina! 🛒",
	},
	{
		keywords: []string{"delivery", "shipping", "డెలివరీ"},
		english:  "Free shipping on orders above ₹500! Delivery takes 3-5 business days. 🚚",
		telugu:   "₹500 paina orders ki free shipping! Delivery 3-5 days lo untundi. 🚚",
	},
	{
		keywords: []string{"size", "quantity", "gram"},
		english:  "We offer 3 sizes: 250g, 500g, and 1kg. Larger sizes give you more value! 📦",
		telugu:   "Memu 3 sizes lo andistham: 250g, 500g, mariyu 1kg. Pedda size teesukuntey value ekkuva! 📦",
	},
	{
		keywords: []string{"best", "popular", "famous", "మంచి"},
		english:  "Avakai is our most popular pickle! Traditional Andhra style, very spicy and delicious! Customer favorite! ⭐",
		telugu:   "Avakaya achar maa most popular! Traditional Andhra style, chaala kaaram mariyu ruchiga untundi! Customer favorite! ⭐",
	},
	{
		keywords: []string{"ingredient", "made", "how", "traditional"},
		english:  "Our pickles are made with traditional Andhra recipes using fresh ingredients. No preservatives, completely authentic taste! 🌿",
		telugu:   "Maa acharlu traditional Andhra recipes tho fresh ingredients tho chesthamu. No preservatives, authentic taste! 🌿",
	},
	{
		keywords: []string{"thank", "dhanyavad", "ధన్యవాదాలు"},
		english:  "You're welcome! Try our pickles, you'll love them! 🙏",
		telugu:   "Swaagatam! Maa acharlu try cheyandi, meeku nachuthundi! 🙏",
	},
}

var fallbackRule = rule{
	english: "Ask me about our pickles, prices, spice levels, or sizes! For example: 'What pickles do you have?', 'I want spicy', 'What are the prices?' 😊",
	telugu:  "Meeru acharla gurinchi, dharalu, kaaram levels, leda sizes gurinchi adagandi! Example: 'Ye pickles unnayi?', 'Spicy kavali', 'Prices entha?' 😊",
}

// Reply answers message from the keyword table, in English or romanized
// Telugu to match the shopper. The first matching rule wins.
func Reply(message string) string {
	msg := strings.ToLower(message)
	telugu := IsTelugu(message)

	r := fallbackRule
	for _, candidate := range rules {
		if candidate.matches(msg) {
			r = candidate
			break
		}
	}
	if telugu {
		return r.telugu
	}
	return r.english
}
