package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestEvaluate_CleanPageHasNoIssues(t *testing.T) {
	fields := PageFields{
		StatusCode:      intPtr(200),
		Title:           "A Good Title",
		MetaDescription: "A useful description",
		H1Count:         1,
		Canonical:       "https://example.com/",
		WordCount:       intPtr(500),
	}
	drafts := Evaluate(fields, time.Now())
	assert.Empty(t, drafts)
}

func TestEvaluate_StatusRules(t *testing.T) {
	drafts := Evaluate(PageFields{StatusCode: intPtr(404), Title: "Some Title Here", MetaDescription: "A useful description", H1Count: 1, Canonical: "https://example.com/"}, time.Now())
	require.Len(t, drafts, 1)
	assert.Equal(t, "STATUS_4XX_5XX", drafts[0].Type)

	drafts = Evaluate(PageFields{StatusCode: intPtr(301), Title: "Some Title Here", MetaDescription: "A useful description", H1Count: 1, Canonical: "https://example.com/"}, time.Now())
	require.Len(t, drafts, 1)
	assert.Equal(t, "STATUS_3XX_REDIRECT", drafts[0].Type)
}

func TestEvaluate_RedirectChainLong(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here", RedirectChainLen: 3}, time.Now())
	found := false
	for _, d := range drafts {
		if d.Type == "REDIRECT_CHAIN_LONG" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEvaluate_TitleRules(t *testing.T) {
	drafts := Evaluate(PageFields{Title: ""}, time.Now())
	assertHasType(t, drafts, "MISSING_TITLE")

	longTitle := ""
	for i := 0; i < 70; i++ {
		longTitle += "a"
	}
	drafts = Evaluate(PageFields{Title: longTitle}, time.Now())
	assertHasType(t, drafts, "TITLE_TOO_LONG")

	drafts = Evaluate(PageFields{Title: "short"}, time.Now())
	assertHasType(t, drafts, "TITLE_TOO_SHORT")
}

func TestEvaluate_MissingMetaDescription(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here"}, time.Now())
	assertHasType(t, drafts, "MISSING_META_DESCRIPTION")
}

func TestEvaluate_H1Rules(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here", H1Count: 0}, time.Now())
	assertHasType(t, drafts, "H1_MISSING")

	drafts = Evaluate(PageFields{Title: "Some Title Here", H1Count: 2}, time.Now())
	assertHasType(t, drafts, "H1_MULTIPLE")
}

func TestEvaluate_CanonicalMissing(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here", H1Count: 1}, time.Now())
	assertHasType(t, drafts, "CANONICAL_MISSING")
}

func TestEvaluate_RobotsNoindex(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here", RobotsMeta: "NoIndex, follow"}, time.Now())
	assertHasType(t, drafts, "ROBOTS_NOINDEX")
}

func TestEvaluate_ThinContent(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here", WordCount: intPtr(50)}, time.Now())
	assertHasType(t, drafts, "THIN_CONTENT")
}

func TestEvaluate_ImagesMissingAlt(t *testing.T) {
	drafts := Evaluate(PageFields{Title: "Some Title Here", ImagesMissingAlt: 3}, time.Now())
	assertHasType(t, drafts, "IMAGES_MISSING_ALT")
}

func TestEvaluate_ContentStale(t *testing.T) {
	old := time.Now().Add(-400 * 24 * time.Hour)
	drafts := Evaluate(PageFields{Title: "Some Title Here", LastModified: &old}, time.Now())
	assertHasType(t, drafts, "CONTENT_STALE")

	recent := time.Now().Add(-10 * 24 * time.Hour)
	drafts = Evaluate(PageFields{Title: "Some Title Here", LastModified: &recent}, time.Now())
	assertNotHasType(t, drafts, "CONTENT_STALE")
}

func assertHasType(t *testing.T, drafts []Draft, ruleType string) {
	t.Helper()
	for _, d := range drafts {
		if d.Type == ruleType {
			return
		}
	}
	t.Errorf("expected a %s draft, got %+v", ruleType, drafts)
}

func assertNotHasType(t *testing.T, drafts []Draft, ruleType string) {
	t.Helper()
	for _, d := range drafts {
		if d.Type == ruleType {
			t.Errorf("did not expect a %s draft, got %+v", ruleType, drafts)
		}
	}
}
