// Package lang detects the language of inbound queries. Script inspection is
// the fast path; a romanized-Hindi token heuristic catches Hinglish, which is
// treated as its own blended category rather than a variant of either pure
// language.
package lang

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/kisanmitra/advisor/internal/model"
)

// romanizedHindi lists high-frequency Hindi function words as they appear in
// Latin-script messages. A token hit here is strong evidence of Hinglish.
var romanizedHindi = map[string]struct{}{
	"hai": {}, "hain": {}, "kya": {}, "kyu": {}, "kyun": {}, "kaise": {},
	"kab": {}, "kahan": {}, "mein": {}, "mera": {}, "meri": {}, "mere": {},
	"ka": {}, "ki": {}, "ke": {}, "ko": {}, "se": {}, "par": {},
	"nahi": {}, "nahin": {}, "bhi": {}, "aur": {}, "abhi": {}, "kal": {},
	"aaj": {}, "bata": {}, "batao": {}, "chahiye": {}, "karna": {},
	"hoga": {}, "hogi": {}, "wala": {}, "fasal": {}, "kheti": {},
	"mandi": {}, "bhav": {}, "paani": {}, "barish": {}, "mausam": {},
}

// Detector resolves the language of raw input text.
type Detector struct {
	base model.Language
}

// NewDetector creates a detector that falls back to base when neither the
// script check nor the token heuristic is conclusive.
func NewDetector(base model.Language) *Detector {
	if base == "" {
		base = model.LanguageEnglish
	}
	return &Detector{base: base}
}

// Detect returns the language of text. Devanagari-only input is Hindi,
// Devanagari mixed with Latin is Hinglish, and Latin input is split between
// English and Hinglish by the romanized-Hindi token ratio.
func (d *Detector) Detect(text string) model.Language {
	devanagari, latin := scriptCounts(text)

	if devanagari > 0 && latin == 0 {
		return model.LanguageHindi
	}
	if devanagari > 0 && latin > 0 {
		return model.LanguageHinglish
	}
	if latin == 0 {
		// Digits, punctuation, emoji only.
		return d.base
	}

	// Latin script: statistical fallback on romanized-Hindi tokens.
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return d.base
	}
	hits := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:\"'()")
		if _, ok := romanizedHindi[tok]; ok {
			hits++
		}
	}
	if float64(hits)/float64(len(tokens)) >= 0.2 {
		return model.LanguageHinglish
	}
	return model.LanguageEnglish
}

// ParseHint maps a client-supplied language hint (a BCP 47 tag such as "hi"
// or "en-IN") onto a supported language. Unrecognized hints return ok=false
// so the caller can fall back to detection.
func ParseHint(hint string) (model.Language, bool) {
	if hint == "" {
		return "", false
	}
	if model.Language(hint) == model.LanguageHinglish {
		return model.LanguageHinglish, true
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return model.LanguageEnglish, true
	case "hi":
		return model.LanguageHindi, true
	default:
		return "", false
	}
}

func scriptCounts(text string) (devanagari, latin int) {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			devanagari++
		case unicode.IsLetter(r) && r < unicode.MaxASCII:
			latin++
		}
	}
	return devanagari, latin
}
