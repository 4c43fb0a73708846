package checks

import (
	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/issues"
)

// SocialsNoneText is shown when none of the social media tags was found.
const SocialsNoneText = "No social media tags found"

// SEORules returns the SEO check table.
func SEORules() []Rule {
	return []Rule{
		{
			Key:          "favicon",
			Title:        "Favicon",
			Description:  "The small site icon shown next to the tab title. It makes the brand recognizable and builds user trust.",
			PositiveText: "The site has a favicon",
			NegativeText: "The favicon file is missing",
			Shape:        seoFile(func(f audit.SeoFiles) audit.Result[audit.CheckResult] { return f.Favicon }),
		},
		{
			Key:          "robots",
			Title:        "Robots.txt",
			Description:  "Tells search crawlers which pages to crawl and which to skip. Controls indexing and keeps internal or duplicate pages out of search.",
			PositiveText: "The site has a robots.txt file",
			NegativeText: "The robots.txt file is missing",
			Shape:        seoFile(func(f audit.SeoFiles) audit.Result[audit.CheckResult] { return f.Robots }),
		},
		{
			Key:          "sitemap",
			Title:        "Sitemap.xml",
			Description:  "A list of all important pages of the site. Makes crawling and indexing easier for search engines.",
			PositiveText: "The site has a sitemap.xml file",
			NegativeText: "The sitemap.xml file is missing",
			Shape:        seoFile(func(f audit.SeoFiles) audit.Result[audit.CheckResult] { return f.Sitemap }),
		},
		{
			Key:          "title",
			Title:        "Title",
			Description:  "The <title> tag is shown in search results and on the browser tab. It affects click-through rate and tells search engines what the page is about.",
			PositiveText: "Pages use the <title/> tag",
			NegativeText: "The <title/> tag is missing",
			Shape:        pageIssue(audit.IssueTitle),
		},
		{
			Key:          "description",
			Title:        "Description",
			Description:  "The <meta name=\"description\"> tag is the page summary shown in search results. It can affect click-through rate and traffic.",
			PositiveText: "Pages use the <meta description/> tag",
			NegativeText: "The <meta description/> tag is missing",
			Shape:        pageIssue(audit.IssueDescription),
		},
		{
			Key:          "socials",
			Title:        "Social media",
			Description:  "OpenGraph and Twitter Card tags control how the page looks when shared on social networks.",
			PositiveText: "The site uses social media tags",
			NegativeText: "The site does not use all required social media tags",
			Shape: AllOrNothing{
				Fields:   socialFlags,
				NoneText: SocialsNoneText,
			},
		},
		{
			Key:          "imageSeo",
			Title:        "Image SEO",
			Description:  "The alt attribute lets search engines understand images and makes the site accessible to visually impaired users.",
			PositiveText: "All images have an alt attribute",
			NegativeText: "Some images have no alt attribute",
			Shape:        pageIssue(audit.IssueImageSeo),
		},
		{
			Key:          "inlineCode",
			Title:        "Inline code",
			Description:  "Inline styles and scripts cannot be cached or reused and make the page structure harder to read for search engines.",
			PositiveText: "No inline code or styles in the HTML",
			NegativeText: "The HTML contains inline code or styles",
			Shape:        pageIssue(audit.IssueInlineCode),
		},
		{
			Key:          "h1Missing",
			Title:        "H1 heading",
			Description:  "The <h1> tag is the main heading of a page. It tells search engines the main topic and should be unique per page.",
			PositiveText: "Every page has an <h1/> tag",
			NegativeText: "Not every page has an <h1/> tag",
			Shape:        pageIssue(audit.IssueH1Missing),
		},
		{
			Key:          "brokenLinks",
			Title:        "Broken links",
			Description:  "Broken links hurt the user experience and can lower search engine trust in the site.",
			PositiveText: "No broken links",
			NegativeText: "The site has broken links",
			Shape:        pageIssue(audit.IssueBrokenLinks),
		},
		{
			Key:          "canonicalUrl",
			Title:        "Canonical URL",
			Description:  "The <link rel=\"canonical\"> tag tells search engines which version of a page is the primary one.",
			PositiveText: "Pages declare a canonical URL",
			NegativeText: "The canonical URL is missing",
			Shape:        pageIssue(audit.IssueCanonicalURL),
		},
		{
			Key:          "structuredData",
			Title:        "Structured data",
			Description:  "Structured data (schema.org, JSON-LD) helps search engines understand the content and enables rich results.",
			PositiveText: "Pages contain structured data",
			NegativeText: "Structured data is missing",
			Shape:        pageIssue(audit.IssueStructuredData),
		},
		{
			Key:          "charset",
			Title:        "Character encoding",
			Description:  "Declaring the encoding (such as UTF-8) in a meta tag prevents rendering problems and keeps indexing correct.",
			PositiveText: "UTF-8 encoding is declared",
			NegativeText: "The encoding is missing or incorrect",
			Shape:        pageIssue(audit.IssueCharset),
		},
		{
			Key:          "doctype",
			Title:        "Doctype",
			Description:  "The <!DOCTYPE> declaration tells the browser which HTML standard the page follows.",
			PositiveText: "A doctype is declared",
			NegativeText: "The doctype is missing",
			Shape:        pageIssue(audit.IssueDoctype),
		},
		{
			Key:          "noindex",
			Title:        "Noindex meta tag",
			Description:  "The noindex meta tag keeps a page out of search engine indexes. Useful for pages not meant for public search.",
			PositiveText: "Non-indexable pages carry the noindex tag",
			NegativeText: "The noindex tag is missing on pages that should not be indexed",
			Shape:        pageIssue(audit.IssueNoindex),
		},
		{
			Key:          "flashContent",
			Title:        "Flash content",
			Description:  "Flash is obsolete and unsupported by modern browsers. It hurts both user experience and SEO.",
			PositiveText: "No Flash content is used",
			NegativeText: "The site uses obsolete Flash content",
			Shape:        pageIssue(audit.IssueFlashContent),
		},
		{
			Key:          "framesetUsed",
			Title:        "Use of <frameset>",
			Description:  "The <frameset> element is obsolete and prevents correct indexing.",
			PositiveText: "The <frameset> element is not used",
			NegativeText: "The site uses the <frameset> element",
			Shape:        pageIssue(audit.IssueFramesetUsed),
		},
	}
}

func seoFile(pick func(audit.SeoFiles) audit.Result[audit.CheckResult]) Direct {
	return Direct{Flag: func(s Subject) (bool, bool) {
		if s.SEO == nil {
			return false, false
		}
		r, ok := pick(s.SEO.SeoFiles).Get()
		if !ok {
			return false, false
		}
		return r.Found, true
	}}
}

// pageIssue derives evidence from the per-page issue reports. Without page
// reports the rule is not evaluable.
func pageIssue(key string) IssueDerived {
	return IssueDerived{Evidence: func(s Subject) ([]string, bool, error) {
		if s.Pages == nil {
			return nil, false, nil
		}
		evidence, err := issues.Collect(s.Pages, key)
		if err != nil {
			return nil, true, err
		}
		return evidence, true, nil
	}}
}

func socialFlags(s Subject) ([]bool, bool) {
	if s.SEO == nil {
		return nil, false
	}
	socials, ok := s.SEO.Socials.Get()
	if !ok {
		return nil, false
	}
	flags := socials.FoundFlags()
	return flags, len(flags) > 0
}
