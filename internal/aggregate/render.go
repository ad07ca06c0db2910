package aggregate

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kisanmitra/advisor/internal/model"
)

// answerTemplate lays out one rendered answer: a per-intent header, one
// titled block per section, and a best-effort note when every section is a
// fallback.
var answerTemplate = template.Must(template.New("answer").Parse(
	`{{.Header}}
{{range .Sections}}
{{.Title}}:
{{- range .Lines}}
- {{.}}
{{- end}}
{{end}}{{if .Note}}
{{.Note}}{{end}}`))

type renderedSection struct {
	Title string
	Lines []string
}

type renderData struct {
	Header   string
	Sections []renderedSection
	Note     string
}

// renderText produces the answer text in the query's language, falling back
// to English for any string the language tables lack.
func renderText(answer *model.AggregatedAnswer) string {
	lang := answer.Language
	if answer.Query.Intent == model.IntentGreeting {
		return greetingText(lang)
	}

	data := renderData{
		Header: headerFor(answer.Query, lang),
	}
	for _, s := range answer.Sections {
		data.Sections = append(data.Sections, renderedSection{
			Title: sectionTitle(s.Source, lang),
			Lines: sectionLines(s),
		})
	}
	if answer.BestEffort {
		data.Note = bestEffortNote(lang)
	}

	var b strings.Builder
	if err := answerTemplate.Execute(&b, data); err != nil {
		// The template is static and the data is plain strings; execution
		// cannot fail at runtime, but never return an empty answer.
		return data.Header
	}
	return strings.TrimSpace(b.String())
}

func greetingText(lang model.Language) string {
	switch lang {
	case model.LanguageHindi:
		return "नमस्ते! मैं आपका कृषि सलाहकार हूं। फसल, मौसम, मंडी भाव, कीट नियंत्रण या सरकारी योजनाओं के बारे में पूछें।"
	case model.LanguageHinglish:
		return "Namaste! Main aapka krishi salahkar hoon. Fasal, mausam, mandi bhav, keet niyantran ya sarkari yojana ke baare mein poochhiye."
	default:
		return "Hello! I am your agricultural advisor. Ask me about crops, weather, market prices, pest control, or government schemes."
	}
}

func headerFor(q model.StructuredQuery, lang model.Language) string {
	subject := q.Crop
	if subject == "" {
		subject = q.Location
	}

	headers := map[model.Intent]map[model.Language]string{
		model.IntentCropRecommendation: {
			model.LanguageEnglish:  "Crop recommendation",
			model.LanguageHindi:    "फसल सलाह",
			model.LanguageHinglish: "Fasal salah",
		},
		model.IntentWeather: {
			model.LanguageEnglish:  "Weather outlook",
			model.LanguageHindi:    "मौसम जानकारी",
			model.LanguageHinglish: "Mausam jankari",
		},
		model.IntentMarketPrice: {
			model.LanguageEnglish:  "Market prices",
			model.LanguageHindi:    "मंडी भाव",
			model.LanguageHinglish: "Mandi bhav",
		},
		model.IntentPestControl: {
			model.LanguageEnglish:  "Pest and disease advisory",
			model.LanguageHindi:    "कीट एवं रोग सलाह",
			model.LanguageHinglish: "Keet aur rog salah",
		},
		model.IntentGovernmentScheme: {
			model.LanguageEnglish:  "Government schemes",
			model.LanguageHindi:    "सरकारी योजनाएं",
			model.LanguageHinglish: "Sarkari yojana",
		},
		model.IntentGeneralKnowledge: {
			model.LanguageEnglish:  "Advisory",
			model.LanguageHindi:    "सलाह",
			model.LanguageHinglish: "Salah",
		},
	}

	header := lookupLang(headers[q.Intent], lang)
	if subject != "" {
		header = fmt.Sprintf("%s: %s", header, subject)
	}
	return header
}

func sectionTitle(source string, lang model.Language) string {
	titles := map[string]map[model.Language]string{
		"open-meteo": {
			model.LanguageEnglish:  "Weather",
			model.LanguageHindi:    "मौसम",
			model.LanguageHinglish: "Mausam",
		},
		"agmarknet": {
			model.LanguageEnglish:  "Mandi prices",
			model.LanguageHindi:    "मंडी भाव",
			model.LanguageHinglish: "Mandi bhav",
		},
		"agridata-crops": {
			model.LanguageEnglish:  "Crop advisory",
			model.LanguageHindi:    "फसल सलाह",
			model.LanguageHinglish: "Fasal salah",
		},
		"agridata-schemes": {
			model.LanguageEnglish:  "Schemes",
			model.LanguageHindi:    "योजनाएं",
			model.LanguageHinglish: "Yojana",
		},
		"anthropic": {
			model.LanguageEnglish:  "Answer",
			model.LanguageHindi:    "उत्तर",
			model.LanguageHinglish: "Jawab",
		},
	}
	if t, ok := titles[source]; ok {
		return lookupLang(t, lang)
	}
	return source
}

func bestEffortNote(lang model.Language) string {
	switch lang {
	case model.LanguageHindi:
		return "नोट: लाइव डेटा उपलब्ध नहीं है, यह सामान्य मार्गदर्शन है। कृपया बाद में फिर से पूछें।"
	case model.LanguageHinglish:
		return "Note: live data uplabdh nahi hai, yeh samanya margdarshan hai. Kripya baad mein phir poochhein."
	default:
		return "Note: live data is unavailable right now, so this is general guidance. Please ask again later."
	}
}

func lookupLang(m map[model.Language]string, lang model.Language) string {
	if s, ok := m[lang]; ok {
		return s
	}
	return m[model.LanguageEnglish]
}

// sectionLines turns a provider payload into short display lines. Payloads
// arrive both freshly built and decoded from the cache, so collection values
// are read through the any-typed helpers below.
func sectionLines(s model.ProviderResult) []string {
	var lines []string

	if adv, ok := s.Payload["advisory"].(string); ok && adv != "" {
		lines = append(lines, adv)
	}
	if ans, ok := s.Payload["answer"].(string); ok && ans != "" {
		lines = append(lines, ans)
	}

	if cur, ok := asMap(s.Payload["current"]); ok {
		lines = append(lines, fmt.Sprintf("Now: %.1f°C, humidity %.0f%%, rain %.1f mm",
			asFloat(cur["temperature_c"]),
			asFloat(cur["humidity_pct"]),
			asFloat(cur["precipitation_mm"]),
		))
	}

	for i, row := range asMaps(s.Payload["prices"]) {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s (%s): Rs %.0f/qtl on %s",
			asString(row["market"]),
			asString(row["variety"]),
			asFloat(row["modal_price_rs_per_qtl"]),
			asString(row["arrival_date"]),
		))
	}

	for i, row := range asMaps(s.Payload["recommendations"]) {
		if i == 3 {
			break
		}
		line := fmt.Sprintf("%s (%s)", asString(row["crop"]), asString(row["season"]))
		if y := asFloat(row["yield_qtl_per_acre"]); y > 0 {
			line += fmt.Sprintf(", typical yield %.1f qtl/acre", y)
		}
		if notes := asString(row["notes"]); notes != "" {
			line += ": " + notes
		}
		lines = append(lines, line)
	}

	for i, row := range asMaps(s.Payload["schemes"]) {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s", asString(row["name"]), asString(row["benefit"])))
	}

	if len(lines) == 0 {
		lines = append(lines, "No details available.")
	}
	return lines
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asMaps accepts both []map[string]any (fresh payloads) and []any of maps
// (payloads decoded from cached JSON).
func asMaps(v any) []map[string]any {
	switch rows := v.(type) {
	case []map[string]any:
		return rows
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			if m, ok := r.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
