package scoring

import (
	"fmt"
	"math"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/checks"
)

// SecurityScorer deducts points for failed SSL checks, a missing SPF record,
// unsafe external links and missing HTTP/2 support.
type SecurityScorer struct {
	SSL            map[string]float64 // by SSL check key
	SPF            float64
	UnsafeLinkEach float64
	UnsafeLinksCap float64
	NoHTTP2        float64
}

func (s *SecurityScorer) Category() Category { return CategorySecurity }

func (s *SecurityScorer) Score(run *audit.Run, _ []checks.Verdict) (float64, []Deduction, bool) {
	if run == nil || run.Security == nil {
		return 0, nil, false
	}
	sec := run.Security

	var deductions []Deduction
	add := func(key, reason string, points float64) {
		if points > 0 {
			deductions = append(deductions, Deduction{
				Category: CategorySecurity,
				Key:      key,
				Reason:   reason,
				Points:   points,
			})
		}
	}

	if certs, ok := sec.SslCertificates.Get(); ok {
		c := certs.Checks
		sslChecks := []struct {
			key string
			ok  bool
		}{
			{"notUsedBeforeActivationDate", c.NotUsedBeforeActivationDate},
			{"notExpired", c.NotExpired},
			{"hostnameMatches", c.HostnameMatches},
			{"trustedByMajorBrowsers", c.TrustedByMajorBrowsers},
			{"usesSecureHash", c.UsesSecureHash},
		}
		for _, f := range sslChecks {
			if !f.ok {
				add(f.key, "SSL check "+f.key+" failed", s.SSL[f.key])
			}
		}
	}

	if spf, ok := sec.SpfRecord.Get(); ok && !spf.Found {
		add("spfRecord", "No SPF record", s.SPF)
	}

	if n := len(sec.AllUnsafeLinks); n > 0 {
		add("unsafeLinks", fmt.Sprintf("%d unsafe external links", n),
			math.Min(float64(n)*s.UnsafeLinkEach, s.UnsafeLinksCap))
	}

	if sec.Http2Support != nil && !*sec.Http2Support {
		add("http2Support", "HTTP/2 is not supported", s.NoHTTP2)
	}

	return clampScore(math.Trunc(100 - total(deductions))), deductions, true
}
