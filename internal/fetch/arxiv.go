package fetch

import (
	"regexp"
)

// arxivPattern matches abstract and pdf links, new-style (2110.06744) and
// old-style (cs/0112017) ids, with optional version and .pdf suffixes.
var arxivPattern = regexp.MustCompile(
	`arxiv\.org/(?:abs|pdf)/((?:\d{4}\.\d{4,5})|(?:[a-z][a-z\-]*(?:\.[A-Z]{2})?/\d{7}))(?:v\d+)?(?:\.pdf)?/?(?:[?#].*)?$`)

// NormalizeArxiv rewrites an arxiv abstract or pdf link to the direct pdf
// link without version suffix. ok is false for anything else.
func NormalizeArxiv(link string) (pdf string, ok bool) {
	m := arxivPattern.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return "https://arxiv.org/pdf/" + m[1] + ".pdf", true
}
