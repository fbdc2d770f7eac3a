package canonical

import (
	"testing"
)

func TestValidate_NonHTTPScheme(t *testing.T) {
	issues := Validate(
		map[string]string{"https://example.com/page": "mailto:seo@example.com"},
		map[string]int{},
	)

	if len(issues) != 1 {
		t.Fatalf("issues len=%d, want 1", len(issues))
	}
	if issues[0].Type != IssueNonHTTPScheme {
		t.Fatalf("issue type=%s, want %s", issues[0].Type, IssueNonHTTPScheme)
	}
}

func TestValidate_CrossDomain(t *testing.T) {
	issues := Validate(
		map[string]string{"https://example.com/page": "https://other.com/target"},
		map[string]int{"https://other.com/target": 200},
	)

	if len(issues) != 1 {
		t.Fatalf("issues len=%d, want 1", len(issues))
	}
	if issues[0].Type != IssueCrossDomain {
		t.Fatalf("issue type=%s, want %s", issues[0].Type, IssueCrossDomain)
	}
}

func TestValidate_TargetRedirect(t *testing.T) {
	issues := Validate(
		map[string]string{"https://example.com/page": "https://example.com/canonical"},
		map[string]int{"https://example.com/canonical": 301},
	)

	if len(issues) != 1 {
		t.Fatalf("issues len=%d, want 1", len(issues))
	}
	if issues[0].Type != IssueTargetRedirect {
		t.Fatalf("issue type=%s, want %s", issues[0].Type, IssueTargetRedirect)
	}
}

func TestValidate_TargetBroken(t *testing.T) {
	issues := Validate(
		map[string]string{"https://example.com/page": "https://example.com/canonical"},
		map[string]int{"https://example.com/canonical": 404},
	)

	if len(issues) != 1 {
		t.Fatalf("issues len=%d, want 1", len(issues))
	}
	if issues[0].Type != IssueTargetBroken {
		t.Fatalf("issue type=%s, want %s", issues[0].Type, IssueTargetBroken)
	}
}

func TestValidate_CanonicalChain(t *testing.T) {
	issues := Validate(
		map[string]string{
			"https://example.com/a": "https://example.com/b",
			"https://example.com/b": "https://example.com/c",
		},
		map[string]int{
			"https://example.com/b": 200,
			"https://example.com/c": 200,
		},
	)

	found := false
	for _, issue := range issues {
		if issue.Type == IssueLoopOrChain && issue.PageURL == "https://example.com/a" {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected loop_or_chain issue for canonical chain")
	}
}

func TestValidate_CanonicalLoop(t *testing.T) {
	issues := Validate(
		map[string]string{
			"https://example.com/a": "https://example.com/b",
			"https://example.com/b": "https://example.com/a",
		},
		map[string]int{
			"https://example.com/a": 200,
			"https://example.com/b": 200,
		},
	)

	found := false
	for _, issue := range issues {
		if issue.Type == IssueLoopOrChain {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected loop_or_chain issue for canonical loop")
	}
}

func TestValidate_SelfCanonicalIsOK(t *testing.T) {
	issues := Validate(
		map[string]string{"https://example.com/page": "https://example.com/page"},
		map[string]int{"https://example.com/page": 200},
	)

	if len(issues) != 0 {
		t.Fatalf("issues len=%d, want 0", len(issues))
	}
}
