package digest

import (
	"strings"
	"testing"
)

const sampleSummary = `<p>Intro commentary ignored by the splitter.</p>
<strong>1. Fed holds rates steady</strong>
<p>The committee left the target range unchanged.
<a href="https://example.com/fed">Full statement</a></p>
<strong style="color:red">2. Petrobras raises diesel prices</strong>
<p>Second adjustment this quarter.</p>
<p>Analysts expect <a href="https://example.com/pbr">pass-through</a> to inflation.</p>
<strong>3. Quiet session in Asia</strong>
No markup in this block at all.`

func TestParseStories(t *testing.T) {
	stories := ParseStories(sampleSummary)
	if len(stories) != 3 {
		t.Fatalf("got %d stories, want 3", len(stories))
	}

	first := stories[0]
	if first.Number != 1 || first.Title != "Fed holds rates steady" {
		t.Errorf("first heading = %d %q", first.Number, first.Title)
	}
	if first.Link != "https://example.com/fed" {
		t.Errorf("first link = %q", first.Link)
	}
	if !strings.Contains(first.Text, "target range unchanged") {
		t.Errorf("first text = %q", first.Text)
	}
	if strings.Contains(first.Text, "<p>") {
		t.Errorf("text not stripped of markup: %q", first.Text)
	}
	if strings.Contains(first.HTML, "Petrobras") {
		t.Error("first block bleeds into the second heading")
	}

	second := stories[1]
	if second.Number != 2 || second.Title != "Petrobras raises diesel prices" {
		t.Errorf("second heading = %d %q", second.Number, second.Title)
	}
	if second.Link != "https://example.com/pbr" {
		t.Errorf("second link = %q", second.Link)
	}

	third := stories[2]
	if third.Number != 3 || third.Link != "" {
		t.Errorf("third = %d link=%q", third.Number, third.Link)
	}
	if third.Text != "No markup in this block at all." {
		t.Errorf("third text = %q", third.Text)
	}
}

func TestParseStoriesDeterministic(t *testing.T) {
	a := ParseStories(sampleSummary)
	b := ParseStories(sampleSummary)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("story %d differs between runs", i)
		}
	}
}

func TestParseStoriesEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"empty input", "", 0},
		{"no headings", "<p>just prose</p>", 0},
		{"unnumbered strong", "<strong>Bold but not a story</strong>", 0},
		{"single story", "<strong>7. Lone item</strong><p>body</p>", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStories(tt.html); len(got) != tt.want {
				t.Errorf("got %d stories, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseStoriesMultilineHeading(t *testing.T) {
	html := "<strong>4. Title spanning\nacross a newline</strong><p>body</p>"
	stories := ParseStories(html)
	if len(stories) != 1 {
		t.Fatalf("got %d stories, want 1", len(stories))
	}
	if stories[0].Title != "Title spanning\nacross a newline" {
		t.Errorf("title = %q", stories[0].Title)
	}
}
