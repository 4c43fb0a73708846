package checks

import (
	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/issues"
)

// SecurityRules returns the security and server check table.
func SecurityRules() []Rule {
	return []Rule{
		{
			Key:          "unsafeLinks",
			Title:        "Unsafe links",
			Description:  "External links without rel=\"noopener noreferrer\" can be a security risk, especially with target=\"_blank\".",
			PositiveText: "All external links are safe",
			NegativeText: "The site has unsafe external links",
			Shape: IssueDerived{Evidence: func(s Subject) ([]string, bool, error) {
				if s.Security == nil {
					return nil, false, nil
				}
				return issues.Dedupe(s.Security.AllUnsafeLinks), true, nil
			}},
		},
		{
			Key:          "spfRecord",
			Title:        "SPF record",
			Description:  "SPF (Sender Policy Framework) is a DNS record listing the servers allowed to send email for the domain. It protects against sender spoofing.",
			PositiveText: "The SPF record is configured correctly",
			NegativeText: "The SPF record is missing or misconfigured",
			Shape: Direct{Flag: func(s Subject) (bool, bool) {
				if s.Security == nil {
					return false, false
				}
				spf, ok := s.Security.SpfRecord.Get()
				if !ok {
					return false, false
				}
				return spf.Found, true
			}},
		},
		{
			Key:          "http2Support",
			Title:        "HTTP/2 support",
			Description:  "HTTP/2 multiplexes requests, compresses headers and reuses connections, which cuts response time and server load.",
			PositiveText: "The server supports HTTP/2",
			NegativeText: "The server does not support HTTP/2",
			Shape: Direct{Flag: func(s Subject) (bool, bool) {
				if s.Security == nil || s.Security.Http2Support == nil {
					return false, false
				}
				return *s.Security.Http2Support, true
			}},
		},
		{
			Key:          "hostnameMatches",
			Title:        "Certificate hostname",
			Description:  "The certificate must be issued for the hostname the site is served from.",
			PositiveText: "The hostname is correctly listed in the certificate",
			NegativeText: "The hostname is not correctly listed in the certificate",
			Shape:        sslCheck(func(c audit.SslChecks) bool { return c.HostnameMatches }),
		},
		{
			Key:          "notExpired",
			Title:        "Certificate expiry",
			Description:  "An expired certificate makes browsers block the site with a warning.",
			PositiveText: "The certificate has not expired",
			NegativeText: "The certificate has expired",
			Shape:        sslCheck(func(c audit.SslChecks) bool { return c.NotExpired }),
		},
		{
			Key:          "notUsedBeforeActivationDate",
			Title:        "Certificate activation date",
			Description:  "A certificate is only valid after its activation date.",
			PositiveText: "The certificate is not used before its activation date",
			NegativeText: "The certificate is used before its activation date",
			Shape:        sslCheck(func(c audit.SslChecks) bool { return c.NotUsedBeforeActivationDate }),
		},
		{
			Key:          "trustedByMajorBrowsers",
			Title:        "Certificate trust",
			Description:  "The certificate chain must lead to a root trusted by major browsers.",
			PositiveText: "The certificate is trusted by major browsers",
			NegativeText: "The certificate is not trusted by major browsers",
			Shape:        sslCheck(func(c audit.SslChecks) bool { return c.TrustedByMajorBrowsers }),
		},
		{
			Key:          "usesSecureHash",
			Title:        "Certificate signature",
			Description:  "Certificates signed with a weak hash function can be forged.",
			PositiveText: "The certificate is signed with a secure hash function",
			NegativeText: "The certificate is not signed with a secure hash function",
			Shape:        sslCheck(func(c audit.SslChecks) bool { return c.UsesSecureHash }),
		},
	}
}

func sslCheck(pick func(audit.SslChecks) bool) Direct {
	return Direct{Flag: func(s Subject) (bool, bool) {
		if s.Security == nil {
			return false, false
		}
		certs, ok := s.Security.SslCertificates.Get()
		if !ok {
			return false, false
		}
		return pick(certs.Checks), true
	}}
}
