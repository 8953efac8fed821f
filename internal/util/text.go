package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reQuotes       = regexp.MustCompile(`[\x{22}\x{55A}\x{5F4}\x{2018}-\x{201F}\x{275B}-\x{275E}\x{FF07}\x{60}]`)
	reControl      = regexp.MustCompile(`[\x00-\x1F\x{80}-\x{9F}\x{2028}\x{2029}]+`)
	reWideSpaces   = regexp.MustCompile(`[\x{A0}\x{1680}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
	reDashes       = regexp.MustCompile(`[\x{2D}\x{2010}-\x{2015}\x{2E3A}\x{2E3B}\x{FE58}\x{FE63}\x{FF0D}]+`)
	reSpaces       = regexp.MustCompile(`\s+`)
	reSelfClosing  = regexp.MustCompile(`(?i)<[^/>]+/>`)
	reListRuns     = regexp.MustCompile(`[;\s.]+;`)
	reParaClose    = regexp.MustCompile(`(?i)[.\s]*</p>\s*`)
	reInlineTags   = regexp.MustCompile(`(?i)[<\[]/*(b|br|emph|i|italic|italics|item|li|list|ol|p|sup|superscript|sub|subscript|ul)(\s+[^>\]]+)?\s*/*[>\]]`)
	reSemicolonDot = regexp.MustCompile(`;\s+\.`)

	entities    = strings.NewReplacer("&gt;", ">", "&lt;", "<", "&amp;", "&")
	punctuation = strings.NewReplacer(
		"( ", "(", " )", ")",
	)
	commas = []struct{ old, new string }{
		{" ,", ","}, {",,", ","}, {",.", "."}, {".,", ","},
		{". [", " ["}, {" : (", " ("},
		{"= =", "="}, {"= :", "="}, {"+,", "+"},
	}

	reFamily     = regexp.MustCompile(`, Family(?:,|$)`)
	reFlourished = regexp.MustCompile(`(, |^)fl ([0-9])`)
	reBorn       = regexp.MustCompile(`(, |^)b ([0-9]{4})`)
	reDied       = regexp.MustCompile(`(, |^)d ([0-9])`)
	reCentury    = regexp.MustCompile(` cent$`)
	reCirca      = regexp.MustCompile(`(, |- |^)c\s*([0-9]+)`)
)

const (
	leftTrim        = `?$.,:;/\])} `
	rightTrim       = `.,:;/\[({ `
	leftTrimStrict  = `?$.,:;/\-])} `
	rightTrimStrict = `.,:;/\-[({ `
)

func isEmpty(s string) bool {
	return s == "" || s == "None"
}

// fixedPoint repeats pass until the text stops changing. Every rewrite
// either shortens the text or removes its own trigger, so it terminates.
func fixedPoint(s string, pass func(string) string) string {
	for {
		next := pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

func Clean(s string) string {
	if isEmpty(s) {
		return ""
	}
	return fixedPoint(s, cleanOnce)
}

func cleanOnce(s string) string {
	s = strings.TrimSpace(s)
	s = reQuotes.ReplaceAllString(s, "'")
	s = reControl.ReplaceAllString(s, "")
	s = reWideSpaces.ReplaceAllString(s, " ")
	s = reDashes.ReplaceAllString(s, "-")
	s = entities.Replace(s)
	s = collapse(s)
	s = reSelfClosing.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "</item>", "; ")
	s = reListRuns.ReplaceAllString(s, ";")
	s = reParaClose.ReplaceAllString(s, ". ")
	s = reInlineTags.ReplaceAllString(s, " ")
	s = strings.TrimSpace(reSemicolonDot.ReplaceAllString(s, "."))
	s = collapse(s)
	return norm.NFC.String(s)
}

func collapse(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func QuickClean(s string) string {
	return quickClean(s, leftTrim, rightTrim)
}

func QuickCleanStrict(s string) string {
	return quickClean(s, leftTrimStrict, rightTrimStrict)
}

func quickClean(s, left, right string) string {
	if isEmpty(s) {
		return ""
	}
	return fixedPoint(s, func(s string) string {
		s = strings.TrimSpace(reSemicolonDot.ReplaceAllString(s, "."))
		s = collapse(s)
		s = strings.TrimRight(strings.TrimLeft(s, left), right)
		s = collapse(s)
		s = punctuation.Replace(s)
		for _, r := range commas {
			s = strings.ReplaceAll(s, r.old, r.new)
		}
		return s
	})
}

func CleanAuthorities(s string) string {
	if isEmpty(s) {
		return ""
	}
	return fixedPoint(s, func(s string) string {
		s = reFamily.ReplaceAllString(s, " family")
		s = reFlourished.ReplaceAllString(s, "${1}active ${2}")
		s = reBorn.ReplaceAllString(s, "${1}${2}-")
		s = reDied.ReplaceAllString(s, "${1}-${2}")
		s = reCentury.ReplaceAllString(s, " century")
		s = reCirca.ReplaceAllString(s, "${1}approximately ${2}")
		s = strings.ReplaceAll(s, " - ", "-")
		return QuickClean(s)
	})
}

func FirstDigits(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == n {
				return b.String()
			}
		}
	}
	return ""
}
