// Package audit defines the payloads pagegrade consumes: the SEO, performance
// and security bundles, per-page issue reports and design grade reports
// produced by upstream analyzers for one audit run.
package audit

// CheckResult is a presence check such as robots.txt or favicon lookup.
type CheckResult struct {
	Found         bool    `json:"found"`
	Message       string  `json:"message,omitempty"`
	FileExtension *string `json:"fileExtension,omitempty"`
	StatusCode    int     `json:"statusCode,omitempty"`
}

// SeoFiles groups the well-known file checks.
type SeoFiles struct {
	Robots  Result[CheckResult] `json:"robots"`
	Sitemap Result[CheckResult] `json:"sitemap"`
	Favicon Result[CheckResult] `json:"favicon"`
}

// Metadata holds the page <title> and meta description findings.
type Metadata struct {
	TitleValue       *string `json:"titleValue"`
	TitleFound       bool    `json:"titleFound"`
	DescriptionValue *string `json:"descriptionValue"`
	DescriptionFound bool    `json:"descriptionFound"`
}

// Socials holds OpenGraph and Twitter card findings. Every flag is optional;
// a nil flag was not reported by the analyzer.
type Socials struct {
	TitleValue       *string `json:"titleValue,omitempty"`
	TitleFound       *bool   `json:"titleFound,omitempty"`
	TypeValue        *string `json:"typeValue,omitempty"`
	TypeFound        *bool   `json:"typeFound,omitempty"`
	DescriptionValue *string `json:"descriptionValue,omitempty"`
	DescriptionFound *bool   `json:"descriptionFound,omitempty"`
	ImageValue       *string `json:"imageValue,omitempty"`
	ImageFound       *bool   `json:"imageFound,omitempty"`
	URLValue         *string `json:"urlValue,omitempty"`
	URLFound         *bool   `json:"urlFound,omitempty"`
	TwitterValue     *string `json:"twitterValue,omitempty"`
	TwitterFound     *bool   `json:"twitterFound,omitempty"`
}

// FoundFlags returns the reported found flags in a fixed order, skipping the
// ones the analyzer did not report.
func (s Socials) FoundFlags() []bool {
	var flags []bool
	for _, f := range []*bool{s.TitleFound, s.TypeFound, s.DescriptionFound, s.ImageFound, s.URLFound, s.TwitterFound} {
		if f != nil {
			flags = append(flags, *f)
		}
	}
	return flags
}

// SearchPreview is what a search engine result for the site looks like.
type SearchPreview struct {
	URL         string  `json:"url"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	HasFavicon  bool    `json:"hasFavicon"`
	Date        *string `json:"date,omitempty"`
}

// SeoBundle is the SEO analyzer's output.
type SeoBundle struct {
	SeoFiles       SeoFiles              `json:"seoFiles"`
	SslCertificate Result[CheckResult]   `json:"sslCertificate"`
	Metadata       Result[Metadata]      `json:"metadata"`
	Socials        Result[Socials]       `json:"socials"`
	SearchPreview  Result[SearchPreview] `json:"searchPreview"`
}

// StrategyMetrics is one Lighthouse run (mobile or desktop).
type StrategyMetrics struct {
	PerformanceScore       int      `json:"performanceScore"`
	FirstContentfulPaint   RawValue `json:"firstContentfulPaint"`
	LargestContentfulPaint RawValue `json:"largestContentfulPaint"`
	CumulativeLayoutShift  RawValue `json:"cumulativeLayoutShift"`
	TotalBlockingTime      RawValue `json:"totalBlockingTime"`
	SpeedIndex             RawValue `json:"speedIndex"`
}

// HtmlCompression describes how the main document is served.
type HtmlCompression struct {
	UncompressedSizeKb     float64 `json:"uncompressedSizeKb"`
	CompressedSizeKb       float64 `json:"compressedSizeKb"`
	CompressionType        string  `json:"compressionType"`
	CompressionRatePercent float64 `json:"compressionRatePercent"`
}

// ImageInfo is an image flagged as oversized.
type ImageInfo struct {
	Src    string  `json:"src"`
	SizeKb float64 `json:"sizeKb"`
}

// AssetIssues lists script and stylesheet URLs with caching or minification problems.
type AssetIssues struct {
	UncachedJs    []string `json:"uncachedJs"`
	UnminifiedJs  []string `json:"unminifiedJs"`
	UncachedCss   []string `json:"uncachedCss"`
	UnminifiedCss []string `json:"unminifiedCss"`
}

// DataMetrics are the DOM and asset measurements shared by both strategies.
type DataMetrics struct {
	DomSize         int              `json:"domSize"`
	HtmlCompression *HtmlCompression `json:"htmlCompression,omitempty"`
	TotalImages     int              `json:"totalImages"`
	OversizedImages []ImageInfo      `json:"oversizedImages"`
	UncachedImages  []string         `json:"uncachedImages"`
	AssetIssues     AssetIssues      `json:"assetIssues"`
}

// PerformanceBundle is the performance analyzer's output.
type PerformanceBundle struct {
	Mobile      Result[StrategyMetrics] `json:"mobile"`
	Desktop     Result[StrategyMetrics] `json:"desktop"`
	DataMetrics Result[DataMetrics]     `json:"dataMetrics"`
}

// Strategies returns the per-strategy results in display order.
func (p PerformanceBundle) Strategies() []NamedStrategy {
	return []NamedStrategy{
		{Name: StrategyMobile, Metrics: p.Mobile},
		{Name: StrategyDesktop, Metrics: p.Desktop},
	}
}

// Lighthouse strategies.
const (
	StrategyMobile  = "mobile"
	StrategyDesktop = "desktop"
)

// NamedStrategy pairs a strategy name with its metrics.
type NamedStrategy struct {
	Name    string
	Metrics Result[StrategyMetrics]
}

// SslChecks are the boolean certificate checks.
type SslChecks struct {
	HostnameMatches             bool `json:"hostnameMatches"`
	NotExpired                  bool `json:"notExpired"`
	NotUsedBeforeActivationDate bool `json:"notUsedBeforeActivationDate"`
	TrustedByMajorBrowsers      bool `json:"trustedByMajorBrowsers"`
	UsesSecureHash              bool `json:"usesSecureHash"`
}

// Certificate is one certificate of the served chain.
type Certificate struct {
	Subject            string `json:"subject"`
	Issuer             string `json:"issuer"`
	NotValidBefore     string `json:"notValidBefore"`
	NotValidAfter      string `json:"notValidAfter"`
	SignatureAlgorithm string `json:"signatureAlgorithm"`
	Version            string `json:"version"`
}

// SslCertificates is the certificate chain plus checks.
type SslCertificates struct {
	Checks                   SslChecks     `json:"checks"`
	ServerCertificate        *Certificate  `json:"serverCertificate,omitempty"`
	IntermediateCertificates []Certificate `json:"intermediateCertificates,omitempty"`
	RootCertificate          *Certificate  `json:"rootCertificate,omitempty"`
}

// SecurityBundle is the security and server analyzer's output.
type SecurityBundle struct {
	SslCertificates Result[SslCertificates] `json:"sslCertificates"`
	SpfRecord       Result[CheckResult]     `json:"spfRecord"`
	AllUnsafeLinks  []string                `json:"allUnsafeLinks"`
	Http2Support    *bool                   `json:"http2Support"`
}
