// Package langmeta provides language metadata for the codes Amazon
// Translate accepts, and the rules for choosing target languages.
package langmeta

import "strings"

// Auto is the pseudo-language Amazon Translate uses for source language
// detection. It is never a valid target.
const Auto = "auto"

// Language is a language code as reported by the translation service.
type Language struct {
	Code string
	Name string
}

// Meta describes language display metadata.
type Meta struct {
	Name   string // English name
	Native string // name in the language itself
}

// Registry contains metadata for the language codes of Amazon Translate.
// Locale variants not listed here are resolved in Resolve() via
// normalization and base fallback.
var Registry = map[string]Meta{
	"af":    {Name: "Afrikaans", Native: "Afrikaans"},
	"am":    {Name: "Amharic", Native: "አማርኛ"},
	"ar":    {Name: "Arabic", Native: "العربية"},
	"az":    {Name: "Azerbaijani", Native: "Azərbaycanca"},
	"bg":    {Name: "Bulgarian", Native: "Български"},
	"bn":    {Name: "Bengali", Native: "বাংলা"},
	"bs":    {Name: "Bosnian", Native: "Bosanski"},
	"ca":    {Name: "Catalan", Native: "Català"},
	"cs":    {Name: "Czech", Native: "Čeština"},
	"cy":    {Name: "Welsh", Native: "Cymraeg"},
	"da":    {Name: "Danish", Native: "Dansk"},
	"de":    {Name: "German", Native: "Deutsch"},
	"el":    {Name: "Greek", Native: "Ελληνικά"},
	"en":    {Name: "English", Native: "English"},
	"es":    {Name: "Spanish", Native: "Español"},
	"es-MX": {Name: "Spanish (Mexico)", Native: "Español (México)"},
	"et":    {Name: "Estonian", Native: "Eesti"},
	"fa":    {Name: "Persian", Native: "فارسی"},
	"fa-AF": {Name: "Dari", Native: "دری"},
	"fi":    {Name: "Finnish", Native: "Suomi"},
	"fr":    {Name: "French", Native: "Français"},
	"fr-CA": {Name: "French (Canada)", Native: "Français (Canada)"},
	"ga":    {Name: "Irish", Native: "Gaeilge"},
	"gu":    {Name: "Gujarati", Native: "ગુજરાતી"},
	"ha":    {Name: "Hausa", Native: "Hausa"},
	"he":    {Name: "Hebrew", Native: "עברית"},
	"hi":    {Name: "Hindi", Native: "हिन्दी"},
	"hr":    {Name: "Croatian", Native: "Hrvatski"},
	"ht":    {Name: "Haitian Creole", Native: "Kreyòl ayisyen"},
	"hu":    {Name: "Hungarian", Native: "Magyar"},
	"hy":    {Name: "Armenian", Native: "Հայերեն"},
	"id":    {Name: "Indonesian", Native: "Bahasa Indonesia"},
	"is":    {Name: "Icelandic", Native: "Íslenska"},
	"it":    {Name: "Italian", Native: "Italiano"},
	"ja":    {Name: "Japanese", Native: "日本語"},
	"ka":    {Name: "Georgian", Native: "ქართული"},
	"kk":    {Name: "Kazakh", Native: "Қазақ тілі"},
	"kn":    {Name: "Kannada", Native: "ಕನ್ನಡ"},
	"ko":    {Name: "Korean", Native: "한국어"},
	"lt":    {Name: "Lithuanian", Native: "Lietuvių"},
	"lv":    {Name: "Latvian", Native: "Latviešu"},
	"mk":    {Name: "Macedonian", Native: "Македонски"},
	"ml":    {Name: "Malayalam", Native: "മലയാളം"},
	"mn":    {Name: "Mongolian", Native: "Монгол"},
	"mr":    {Name: "Marathi", Native: "मराठी"},
	"ms":    {Name: "Malay", Native: "Bahasa Melayu"},
	"mt":    {Name: "Maltese", Native: "Malti"},
	"nl":    {Name: "Dutch", Native: "Nederlands"},
	"no":    {Name: "Norwegian", Native: "Norsk"},
	"pa":    {Name: "Punjabi", Native: "ਪੰਜਾਬੀ"},
	"pl":    {Name: "Polish", Native: "Polski"},
	"ps":    {Name: "Pashto", Native: "پښتو"},
	"pt":    {Name: "Portuguese (Brazil)", Native: "Português (Brasil)"},
	"pt-PT": {Name: "Portuguese (Portugal)", Native: "Português (Portugal)"},
	"ro":    {Name: "Romanian", Native: "Română"},
	"ru":    {Name: "Russian", Native: "Русский"},
	"si":    {Name: "Sinhala", Native: "සිංහල"},
	"sk":    {Name: "Slovak", Native: "Slovenčina"},
	"sl":    {Name: "Slovenian", Native: "Slovenščina"},
	"so":    {Name: "Somali", Native: "Soomaali"},
	"sq":    {Name: "Albanian", Native: "Shqip"},
	"sr":    {Name: "Serbian", Native: "Српски"},
	"sv":    {Name: "Swedish", Native: "Svenska"},
	"sw":    {Name: "Swahili", Native: "Kiswahili"},
	"ta":    {Name: "Tamil", Native: "தமிழ்"},
	"te":    {Name: "Telugu", Native: "తెలుగు"},
	"th":    {Name: "Thai", Native: "ไทย"},
	"tl":    {Name: "Filipino", Native: "Filipino"},
	"tr":    {Name: "Turkish", Native: "Türkçe"},
	"uk":    {Name: "Ukrainian", Native: "Українська"},
	"ur":    {Name: "Urdu", Native: "اردو"},
	"uz":    {Name: "Uzbek", Native: "O'zbek"},
	"vi":    {Name: "Vietnamese", Native: "Tiếng Việt"},
	"zh":    {Name: "Chinese (Simplified)", Native: "简体中文"},
	"zh-TW": {Name: "Chinese (Traditional)", Native: "繁體中文"},
}

// Canonicalize normalizes a language code to the service's spelling:
// lowercase language, uppercase region, hyphen separator.
func Canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := Canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Native: lang}
}

// Targets chooses the languages to translate into. When include is
// non-empty it is used as given (after normalization); otherwise every
// available language is a candidate. Auto, the source language,
// duplicates and anything in exclude are dropped. Order follows include,
// or available when include is empty.
func Targets(available []Language, source string, include, exclude []string) []string {
	var candidates []string
	if len(include) > 0 {
		candidates = include
	} else {
		for _, l := range available {
			candidates = append(candidates, l.Code)
		}
	}

	skip := map[string]bool{Auto: true, Canonicalize(source): true}
	for _, e := range exclude {
		skip[Canonicalize(e)] = true
	}

	var out []string
	for _, c := range candidates {
		code := Canonicalize(c)
		if code == "" || skip[code] {
			continue
		}
		skip[code] = true
		out = append(out, code)
	}
	return out
}
