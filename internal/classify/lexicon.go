package classify

import "github.com/kisanmitra/advisor/internal/model"

// cropLexicon maps crop synonyms (English, romanized Hindi, Devanagari) to
// canonical crop names.
var cropLexicon = map[string]string{
	"wheat": "wheat", "gehu": "wheat", "gehun": "wheat", "गेहूं": "wheat", "गेहू": "wheat",
	"rice": "rice", "paddy": "rice", "dhaan": "rice", "dhan": "rice", "chawal": "rice", "धान": "rice", "चावल": "rice",
	"maize": "maize", "corn": "maize", "makka": "maize", "मक्का": "maize",
	"cotton": "cotton", "kapas": "cotton", "कपास": "cotton",
	"sugarcane": "sugarcane", "ganna": "sugarcane", "गन्ना": "sugarcane",
	"mustard": "mustard", "sarson": "mustard", "सरसों": "mustard",
	"potato": "potato", "aloo": "potato", "आलू": "potato",
	"onion": "onion", "pyaz": "onion", "प्याज": "onion",
	"tomato": "tomato", "tamatar": "tomato", "टमाटर": "tomato",
	"soybean": "soybean", "soyabean": "soybean", "सोयाबीन": "soybean",
	"gram": "gram", "chana": "gram", "चना": "gram", "chickpea": "gram",
	"bajra": "bajra", "बाजरा": "bajra", "millet": "bajra",
	"jowar": "jowar", "ज्वार": "jowar", "sorghum": "jowar",
	"groundnut": "groundnut", "peanut": "groundnut", "moongfali": "groundnut", "मूंगफली": "groundnut",
	"arhar": "pigeon pea", "tur": "pigeon pea", "अरहर": "pigeon pea",
}

// seasonLexicon maps season words to the cropping season.
var seasonLexicon = map[string]model.Season{
	"kharif": model.SeasonKharif, "खरीफ": model.SeasonKharif,
	"monsoon": model.SeasonKharif, "barsaat": model.SeasonKharif,
	"rabi": model.SeasonRabi, "रबी": model.SeasonRabi,
	"winter": model.SeasonRabi, "sardi": model.SeasonRabi, "सर्दी": model.SeasonRabi,
	"zaid": model.SeasonZaid, "जायद": model.SeasonZaid,
	"summer": model.SeasonZaid, "garmi": model.SeasonZaid, "गर्मी": model.SeasonZaid,
}

// extractCrop returns the canonical crop for the first lexicon hit.
func extractCrop(tokens []string) (string, bool) {
	for _, tok := range tokens {
		if crop, ok := cropLexicon[tok]; ok {
			return crop, true
		}
	}
	return "", false
}

// extractSeason returns the cropping season for the first lexicon hit.
func extractSeason(tokens []string) (model.Season, bool) {
	for _, tok := range tokens {
		if s, ok := seasonLexicon[tok]; ok {
			return s, true
		}
	}
	return "", false
}
