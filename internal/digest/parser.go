// Package digest splits an enriched newsletter summary into numbered story
// blocks. The enrichment call returns HTML where each story starts with a
// `<strong>N. Title</strong>` heading; everything up to the next heading is
// that story's body.
package digest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Story is one parsed block of a digest summary.
type Story struct {
	Number int
	Title  string
	// HTML is the raw block body, heading excluded.
	HTML string
	// Text is the block body with markup stripped, newline separated.
	Text string
	// Link is the first href found in the block, or "".
	Link string
}

var (
	headingRe = regexp.MustCompile(`(?s)<strong[^>]*>(\d+)\.\s([^<]+)</strong>`)
	hrefRe    = regexp.MustCompile(`href="([^"]+)"`)
)

// ParseStories extracts the numbered story blocks from summary HTML. Blocks
// whose heading number does not parse are skipped; an input with no headings
// yields nil.
func ParseStories(html string) []Story {
	matches := headingRe.FindAllStringSubmatchIndex(html, -1)
	if len(matches) == 0 {
		return nil
	}

	stories := make([]Story, 0, len(matches))
	for i, match := range matches {
		number, err := strconv.Atoi(html[match[2]:match[3]])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(html[match[4]:match[5]])

		blockEnd := len(html)
		if i+1 < len(matches) {
			blockEnd = matches[i+1][0]
		}
		block := strings.TrimSpace(html[match[1]:blockEnd])

		stories = append(stories, Story{
			Number: number,
			Title:  title,
			HTML:   block,
			Text:   blockText(block),
			Link:   firstLink(block),
		})
	}
	return stories
}

// blockText strips markup, joining element texts with newlines.
func blockText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	var parts []string
	doc.Find("body").Contents().Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(parts, "\n")
}

func firstLink(html string) string {
	if match := hrefRe.FindStringSubmatch(html); match != nil {
		return match[1]
	}
	return ""
}
