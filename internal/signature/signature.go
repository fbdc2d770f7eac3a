// Package signature derives a structural fingerprint from an HTML
// document, used to cluster pages sharing a template.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxBodyTopLevelTags = 30
	maxDomSkeletonNodes = 150
	maxClassTokens      = 15
	maxClassTokenLength = 20
)

var (
	removedSubtrees = []string{"script", "style", "noscript", "svg", "iframe"}
	landmarkTags    = []string{"header", "nav", "main", "footer", "section", "article", "form"}
	formTags        = []string{"input", "button", "select", "textarea"}
	hexLikeToken    = regexp.MustCompile(`^[a-f0-9]{8,}$`)
	digitsOnlyToken = regexp.MustCompile(`^[0-9]+$`)
)

// Signature is the content-independent structural fingerprint of a page.
// Field declaration order fixes the canonical JSON key order; Go's
// encoding/json preserves declared struct field order on marshal, so
// this ordering is sufficient without a custom encoder.
type Signature struct {
	BodyTopLevelTags  []string       `json:"bodyTopLevelTags"`
	LandmarkCounts    map[string]int `json:"landmarkCounts"`
	FormElements      map[string]int `json:"formElements"`
	LinkStats         LinkStats      `json:"linkStats"`
	DomSkeletonSample []string       `json:"domSkeletonSample"`
	ClassTokensSample []string       `json:"classTokensSample"`
}

// LinkStats is the linkStats.* field group of Signature.
type LinkStats struct {
	TotalLinks int `json:"totalLinks"`
}

// Compute pre-cleans html (removing script/style/noscript/svg/iframe
// subtrees), derives the Signature, and returns it along with its
// SHA-256 hash over the canonical JSON encoding.
func Compute(html string) (signatureHash string, sig Signature, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", Signature{}, err
	}

	doc.Find(strings.Join(removedSubtrees, ", ")).Remove()

	body := doc.Find("body").First()

	sig = Signature{
		BodyTopLevelTags:  bodyTopLevelTags(body),
		LandmarkCounts:    countTags(body, landmarkTags),
		FormElements:      countTags(body, formTags),
		LinkStats:         LinkStats{TotalLinks: doc.Find("a[href]").Length()},
		DomSkeletonSample: domSkeletonSample(body),
		ClassTokensSample: classTokensSample(body),
	}

	canonical, err := json.Marshal(sig)
	if err != nil {
		return "", Signature{}, err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), sig, nil
}

func bodyTopLevelTags(body *goquery.Selection) []string {
	var tags []string
	body.Children().EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxBodyTopLevelTags {
			return false
		}
		tags = append(tags, goquery.NodeName(s))
		return true
	})
	return tags
}

func countTags(body *goquery.Selection, tags []string) map[string]int {
	counts := make(map[string]int)
	for _, tag := range tags {
		if n := body.Find(tag).Length(); n > 0 {
			counts[tag] = n
		}
	}
	return counts
}

// domSkeletonSample walks the first maxDomSkeletonNodes descendants of
// body in document order and records a ">"-joined tag path from body to
// each element.
func domSkeletonSample(body *goquery.Selection) []string {
	var paths []string
	var walk func(s *goquery.Selection, ancestry []string)
	walk = func(s *goquery.Selection, ancestry []string) {
		s.Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
			if len(paths) >= maxDomSkeletonNodes {
				return false
			}
			path := append(append([]string{}, ancestry...), goquery.NodeName(child))
			paths = append(paths, strings.Join(path, ">"))
			if len(paths) < maxDomSkeletonNodes {
				walk(child, path)
			}
			return len(paths) < maxDomSkeletonNodes
		})
	}
	walk(body, []string{"body"})
	return paths
}

// classTokensSample collects up to maxClassTokens unique, sorted class
// tokens from [class] elements in document order, filtering out tokens
// that are too short, purely numeric, hex-like, or underscore-prefixed.
func classTokensSample(body *goquery.Selection) []string {
	seen := make(map[string]struct{})
	var tokens []string

	body.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		for _, raw := range strings.Fields(class) {
			token := strings.ToLower(strings.TrimSpace(raw))
			if !keepClassToken(token) {
				continue
			}
			if len(token) > maxClassTokenLength {
				token = token[:maxClassTokenLength]
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
			if len(tokens) >= maxClassTokens {
				return false
			}
		}
		return len(tokens) < maxClassTokens
	})

	sort.Strings(tokens)
	return tokens
}

func keepClassToken(token string) bool {
	if len(token) < 2 {
		return false
	}
	if digitsOnlyToken.MatchString(token) {
		return false
	}
	if hexLikeToken.MatchString(token) {
		return false
	}
	if strings.HasPrefix(token, "_") {
		return false
	}
	return true
}
