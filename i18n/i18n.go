// Package i18n translates awslate's own console messages.
//
// Catalogs are gettext files embedded at
// locales/<lang>/LC_MESSAGES/awslate.po. A regional locale with no
// catalog of its own (ru_RU) uses its base language (ru); anything else
// passes messages through in English.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/leonelquinteros/gotext"

	"github.com/minios-linux/awslate/langmeta"
)

//go:embed all:locales
var locales embed.FS

const (
	domain     = "awslate"
	catalogDir = "locales"
)

// po is nil while messages are passed through untranslated.
var po *gotext.Locale

// localeVars are consulted in GNU gettext order.
var localeVars = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// Init selects the catalog for lang ("ru", "ru_RU.UTF-8", "pt-BR"), or
// for the locale named by the environment when lang is empty. It returns
// the catalog loaded, or "" when messages stay in English.
func Init(lang string) string {
	return load(lang, os.Getenv)
}

func load(lang string, getenv func(string) string) string {
	if lang == "" {
		lang = detectLanguage(getenv)
	} else {
		lang = normalize(lang)
	}

	name := catalogFor(lang)
	if name == "" {
		po = nil
		return ""
	}
	l := gotext.NewLocaleFSWithPath(name, locales, catalogDir)
	l.AddDomain(domain)
	l.SetDomain(domain)
	po = l
	return name
}

// catalogFor returns the catalog directory serving lang: the exact
// locale in either spelling, then its base language.
func catalogFor(lang string) string {
	if lang == "" {
		return ""
	}
	candidates := []string{lang, strings.ReplaceAll(lang, "-", "_")}
	if base, _, ok := strings.Cut(lang, "-"); ok {
		candidates = append(candidates, base)
	}
	for _, c := range candidates {
		if _, err := fs.Stat(locales, path.Join(catalogDir, c, "LC_MESSAGES", domain+".po")); err == nil {
			return c
		}
	}
	return ""
}

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms chosen by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage returns the first usable locale named by localeVars,
// canonicalized the way target languages are ("ru_RU.UTF-8" -> "ru-RU").
// LANGUAGE may list several locales separated by colons. C and POSIX
// mean no translation.
func detectLanguage(getenv func(string) string) string {
	for _, name := range localeVars {
		val := getenv(name)
		if name == "LANGUAGE" {
			val, _, _ = strings.Cut(strings.TrimLeft(val, ":"), ":")
		}
		if lang := normalize(val); lang != "" {
			return lang
		}
	}
	return "en"
}

// normalize strips the encoding and modifier of a POSIX locale name.
func normalize(locale string) string {
	locale, _, _ = strings.Cut(locale, "@")
	locale, _, _ = strings.Cut(locale, ".")
	locale = strings.TrimSpace(locale)
	if locale == "C" || locale == "POSIX" {
		return ""
	}
	return langmeta.Canonicalize(locale)
}
