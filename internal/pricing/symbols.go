package pricing

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"CAD": "$",
	"AUD": "$",
	"INR": "₹",
	"KRW": "₩",
	"THB": "฿",
	"MAD": "MAD",
}

// languages that place the currency symbol after the amount
var suffixLanguages = map[string]bool{
	"fr": true,
	"de": true,
	"es": true,
	"it": true,
	"pt": true,
	"pl": true,
	"sv": true,
	"fi": true,
	"da": true,
	"nb": true,
	"cs": true,
}

func symbolOf(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}
