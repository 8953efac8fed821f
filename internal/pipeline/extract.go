package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reMarkup   = regexp.MustCompile(`<[^>]+>`)
	reBadRunes = regexp.MustCompile(`[\x00\x{FFFD}]`)
)

const blockElements = "p,div,li,h1,h2,h3,h4,h5,h6,pre,blockquote"

type RequestDocument struct {
	Subject     string
	Lines       []string
	Attachments []string
}

func ExtractRequestFromEmailRaw(raw []byte) (RequestDocument, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return RequestDocument{}, err
	}

	doc := RequestDocument{Subject: env.GetHeader("Subject")}
	switch {
	case strings.TrimSpace(env.Text) != "":
		doc.Lines = append(doc.Lines, splitLines(env.Text)...)
	case env.HTML != "":
		doc.Lines = append(doc.Lines, htmlLines(env.HTML)...)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		doc.Attachments = append(doc.Attachments, filename)

		lower := strings.ToLower(filename)
		var (
			extra []string
			err   error
		)
		switch {
		case strings.HasSuffix(lower, ".txt"):
			extra = splitLines(string(att.Content))
		case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
			extra = htmlLines(string(att.Content))
		case strings.HasSuffix(lower, ".pdf"):
			extra, err = pdfLines(att.Content)
		case strings.HasSuffix(lower, ".xlsx"):
			extra, err = xlsxLines(att.Content)
		}
		if err != nil {
			continue
		}
		doc.Lines = append(doc.Lines, extra...)
	}
	return doc, nil
}

func htmlLines(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, normalizeSpaces(cell.Text()))
		})
		row.ReplaceWithNodes(textNode("\n" + cellsToLine(cells) + "\n"))
	})
	doc.Find("br").ReplaceWithNodes(textNode("\n"))
	doc.Find(blockElements).AppendNodes(textNode("\n"))

	return splitLines(doc.Text())
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func pdfLines(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	var out []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		out = append(out, splitLines(text)...)
	}
	return out, nil
}

func xlsxLines(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			if line := cellsToLine(normalizeCells(row)); line != "" {
				out = append(out, line)
			}
		}
	}
	return out, nil
}

func cellsToLine(cells []string) string {
	var kept []string
	for _, c := range cells {
		if c != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 2 && !strings.Contains(kept[0], "=") && !strings.HasPrefix(kept[1], "=") {
		return kept[0] + "=" + kept[1]
	}
	return strings.Join(kept, " ")
}

func cleanRequestLine(line string) string {
	line = reBadRunes.ReplaceAllString(line, "")
	line = reMarkup.ReplaceAllString(line, "")
	line = strings.ReplaceAll(line, "&nbsp;", " ")
	return norm.NFC.String(strings.TrimSpace(line))
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}
