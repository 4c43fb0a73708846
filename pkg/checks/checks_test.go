package checks_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/checks"
)

func boolPtr(b bool) *bool { return &b }

func verdictByKey(t *testing.T, verdicts []checks.Verdict, key string) checks.Verdict {
	t.Helper()
	for _, v := range verdicts {
		if v.Key == key {
			return v
		}
	}
	t.Fatalf("no verdict for %q", key)
	return checks.Verdict{}
}

func TestTablesHaveUniqueKeys(t *testing.T) {
	for _, table := range checks.Categories() {
		if err := checks.Validate(table.Rules); err != nil {
			t.Errorf("%s: %v", table.Category, err)
		}
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	shape := checks.Direct{Flag: func(checks.Subject) (bool, bool) { return true, true }}
	rules := []checks.Rule{{Key: "a", Shape: shape}, {Key: "a", Shape: shape}}
	if err := checks.Validate(rules); err == nil {
		t.Error("expected duplicate key error")
	}
}

func TestVerdictOrderMatchesTable(t *testing.T) {
	for _, table := range checks.Categories() {
		verdicts, err := checks.Evaluate(checks.Subject{}, table.Rules)
		if err != nil {
			t.Fatalf("%s: %v", table.Category, err)
		}
		if len(verdicts) != len(table.Rules) {
			t.Fatalf("%s: %d verdicts for %d rules", table.Category, len(verdicts), len(table.Rules))
		}
		for i, r := range table.Rules {
			if verdicts[i].Key != r.Key {
				t.Errorf("%s[%d] = %s, want %s", table.Category, i, verdicts[i].Key, r.Key)
			}
		}
	}
}

func TestEmptySubjectPassesEverything(t *testing.T) {
	for _, table := range checks.Categories() {
		verdicts, _ := checks.Evaluate(checks.Subject{}, table.Rules)
		for _, v := range verdicts {
			if !v.Passed || v.Known {
				t.Errorf("%s/%s: passed=%v known=%v, want unknown pass", table.Category, v.Key, v.Passed, v.Known)
			}
		}
	}
}

func TestRulesLookup(t *testing.T) {
	rules, err := checks.Rules(checks.CategorySecurity)
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if rules[0].Key != "unsafeLinks" {
		t.Errorf("first security rule = %s", rules[0].Key)
	}
	if _, err := checks.Rules("design"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestSEODirectChecks(t *testing.T) {
	seo := &audit.SeoBundle{
		SeoFiles: audit.SeoFiles{
			Robots:  audit.Ok(audit.CheckResult{Found: true}),
			Sitemap: audit.Ok(audit.CheckResult{Found: false}),
			Favicon: audit.Err[audit.CheckResult]("connection refused"),
		},
	}
	verdicts, err := checks.Evaluate(checks.Subject{SEO: seo}, checks.SEORules())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	robots := verdictByKey(t, verdicts, "robots")
	if !robots.Passed || robots.Text != "The site has a robots.txt file" {
		t.Errorf("robots = %+v", robots)
	}
	sitemap := verdictByKey(t, verdicts, "sitemap")
	if sitemap.Passed || sitemap.Text != "The sitemap.xml file is missing" {
		t.Errorf("sitemap = %+v", sitemap)
	}
	if len(sitemap.Evidence) != 0 {
		t.Error("direct rules carry no evidence")
	}
	favicon := verdictByKey(t, verdicts, "favicon")
	if !favicon.Passed || favicon.Known {
		t.Errorf("error marker should pass as unknown, got %+v", favicon)
	}
}

func TestSocials(t *testing.T) {
	tests := []struct {
		name    string
		socials audit.Result[audit.Socials]
		passed  bool
		text    string
	}{
		{
			name:    "all found",
			socials: audit.Ok(audit.Socials{TitleFound: boolPtr(true), TypeFound: boolPtr(true), ImageFound: boolPtr(true)}),
			passed:  true,
			text:    "The site uses social media tags",
		},
		{
			name:    "none found",
			socials: audit.Ok(audit.Socials{TitleFound: boolPtr(false), TypeFound: boolPtr(false), DescriptionFound: boolPtr(false)}),
			passed:  false,
			text:    checks.SocialsNoneText,
		},
		{
			name:    "mixed",
			socials: audit.Ok(audit.Socials{TitleFound: boolPtr(true), TypeFound: boolPtr(false)}),
			passed:  false,
			text:    "The site does not use all required social media tags",
		},
		{
			name:    "no flags reported",
			socials: audit.Ok(audit.Socials{}),
			passed:  true,
			text:    "The site uses social media tags",
		},
		{
			name:    "error marker",
			socials: audit.Err[audit.Socials]("parse failure"),
			passed:  true,
			text:    "The site uses social media tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject := checks.Subject{SEO: &audit.SeoBundle{Socials: tt.socials}}
			verdicts, err := checks.Evaluate(subject, checks.SEORules())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			v := verdictByKey(t, verdicts, "socials")
			if v.Passed != tt.passed || v.Text != tt.text {
				t.Errorf("socials = (%v, %q), want (%v, %q)", v.Passed, v.Text, tt.passed, tt.text)
			}
		})
	}
}

func TestPageDerivedBrokenLinks(t *testing.T) {
	var pages []audit.PageIssueReport
	data := `[
		{"url": "http://x/", "issues": {"brokenLinks": [{"link": "http://x/y", "error": "404"}]}},
		{"url": "http://x/a", "issues": {"h1Missing": false}}
	]`
	if err := json.Unmarshal([]byte(data), &pages); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	verdicts, err := checks.Evaluate(checks.Subject{Pages: pages}, checks.SEORules())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	v := verdictByKey(t, verdicts, "brokenLinks")
	if v.Passed {
		t.Error("brokenLinks should fail")
	}
	if !reflect.DeepEqual(v.Evidence, []string{"http://x/y (404)"}) {
		t.Errorf("evidence = %v", v.Evidence)
	}
	if h1 := verdictByKey(t, verdicts, "h1Missing"); !h1.Passed || !h1.Known {
		t.Errorf("h1Missing = %+v, want known pass", h1)
	}
}

func TestInvalidEvidenceIsolatedToItsRule(t *testing.T) {
	var pages []audit.PageIssueReport
	data := `[{"url": "http://x/", "issues": {"charset": 7, "doctype": true}}]`
	if err := json.Unmarshal([]byte(data), &pages); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	verdicts, err := checks.Evaluate(checks.Subject{Pages: pages}, checks.SEORules())
	if !errors.Is(err, audit.ErrInvalidEvidence) {
		t.Fatalf("err = %v, want ErrInvalidEvidence", err)
	}
	if len(verdicts) != len(checks.SEORules()) {
		t.Fatalf("got %d verdicts", len(verdicts))
	}
	charset := verdictByKey(t, verdicts, "charset")
	if charset.Passed || charset.Error == "" {
		t.Errorf("charset = %+v, want failing verdict with error", charset)
	}
	doctype := verdictByKey(t, verdicts, "doctype")
	if doctype.Passed || doctype.Error != "" || !reflect.DeepEqual(doctype.Evidence, []string{"http://x/"}) {
		t.Errorf("doctype = %+v", doctype)
	}
}

func TestPerformanceRules(t *testing.T) {
	perf := &audit.PerformanceBundle{
		DataMetrics: audit.Ok(audit.DataMetrics{
			DomSize: 1500,
			HtmlCompression: &audit.HtmlCompression{
				UncompressedSizeKb: 42,
				CompressionType:    "none",
			},
			OversizedImages: []audit.ImageInfo{{Src: "/big.png", SizeKb: 512.5}},
			AssetIssues: audit.AssetIssues{
				UncachedJs:   []string{"/app.js", "/app.js"},
				UnminifiedJs: []string{"/vendor.js"},
			},
		}),
	}
	verdicts, err := checks.Evaluate(checks.Subject{Performance: perf}, checks.PerformanceRules())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	tests := []struct {
		key      string
		passed   bool
		evidence []string
	}{
		{"domSize", false, nil},
		{"htmlSize", true, nil},
		{"htmlCompression", false, nil},
		{"uncachedJs", false, []string{"/app.js"}},
		{"uncachedCss", true, nil},
		{"unminifiedCss", true, nil},
		{"unminifiedJs", false, []string{"/vendor.js"}},
		{"uncachedImages", true, nil},
		{"oversizedImages", false, []string{"/big.png (512.5 KB)"}},
	}
	for _, tt := range tests {
		v := verdictByKey(t, verdicts, tt.key)
		if v.Passed != tt.passed {
			t.Errorf("%s passed = %v, want %v", tt.key, v.Passed, tt.passed)
		}
		if !reflect.DeepEqual(v.Evidence, tt.evidence) {
			t.Errorf("%s evidence = %v, want %v", tt.key, v.Evidence, tt.evidence)
		}
	}
}

func TestHtmlChecksUnknownWithoutCompressionData(t *testing.T) {
	perf := &audit.PerformanceBundle{DataMetrics: audit.Ok(audit.DataMetrics{DomSize: 10})}
	verdicts, _ := checks.Evaluate(checks.Subject{Performance: perf}, checks.PerformanceRules())
	for _, key := range []string{"htmlSize", "htmlCompression"} {
		if v := verdictByKey(t, verdicts, key); !v.Passed || v.Known {
			t.Errorf("%s = %+v, want unknown pass", key, v)
		}
	}
}

func TestSecurityRules(t *testing.T) {
	sec := &audit.SecurityBundle{
		SslCertificates: audit.Ok(audit.SslCertificates{Checks: audit.SslChecks{
			HostnameMatches:             true,
			NotExpired:                  false,
			NotUsedBeforeActivationDate: true,
			TrustedByMajorBrowsers:      true,
			UsesSecureHash:              false,
		}}),
		SpfRecord:      audit.Err[audit.CheckResult]("no TXT records"),
		AllUnsafeLinks: []string{},
		Http2Support:   boolPtr(false),
	}
	verdicts, err := checks.Evaluate(checks.Subject{Security: sec}, checks.SecurityRules())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := map[string]bool{
		"unsafeLinks":                 true,
		"spfRecord":                   true,
		"http2Support":                false,
		"hostnameMatches":             true,
		"notExpired":                  false,
		"notUsedBeforeActivationDate": true,
		"trustedByMajorBrowsers":      true,
		"usesSecureHash":              false,
	}
	for key, passed := range want {
		if v := verdictByKey(t, verdicts, key); v.Passed != passed {
			t.Errorf("%s passed = %v, want %v", key, v.Passed, passed)
		}
	}
}

func TestUnsafeLinksFailWhenPresent(t *testing.T) {
	sec := &audit.SecurityBundle{AllUnsafeLinks: []string{"http://evil.test", "http://evil.test"}}
	verdicts, _ := checks.Evaluate(checks.Subject{Security: sec}, checks.SecurityRules())
	v := verdictByKey(t, verdicts, "unsafeLinks")
	if v.Passed || !reflect.DeepEqual(v.Evidence, []string{"http://evil.test"}) {
		t.Errorf("unsafeLinks = %+v", v)
	}
}

func TestUnsupportedShape(t *testing.T) {
	type custom struct{ checks.Direct }
	rules := []checks.Rule{
		{Key: "custom", NegativeText: "bad", Shape: custom{}},
		{Key: "ok", PositiveText: "fine", Shape: checks.Direct{Flag: func(checks.Subject) (bool, bool) { return true, true }}},
	}
	verdicts, err := checks.Evaluate(checks.Subject{}, rules)
	if err == nil {
		t.Fatal("expected error for unsupported shape")
	}
	if verdicts[0].Passed || verdicts[0].Error == "" {
		t.Errorf("custom = %+v, want failing verdict with error", verdicts[0])
	}
	if !verdicts[1].Passed || verdicts[1].Text != "fine" {
		t.Errorf("ok = %+v", verdicts[1])
	}
}
