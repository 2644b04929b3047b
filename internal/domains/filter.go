package domains

import "strings"

// Filter returns the domains eligible for valuation. A domain qualifies when
// the label before the first dot contains no digits and no hyphens. Empty and
// whitespace-only entries are dropped.
func Filter(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if Eligible(d) {
			out = append(out, d)
		}
	}
	return out
}

// Eligible reports whether a single domain passes the valuation filter.
func Eligible(domain string) bool {
	label := domain
	if i := strings.Index(domain, "."); i >= 0 {
		label = domain[:i]
	}
	if label == "" {
		return false
	}
	for _, r := range label {
		if r >= '0' && r <= '9' {
			return false
		}
		if r == '-' {
			return false
		}
	}
	return true
}

// Partition splits domains into consecutive chunks of at most size elements.
// The final chunk holds the remainder. A non-positive size yields a single
// chunk with everything.
func Partition(domains []string, size int) [][]string {
	if len(domains) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{domains}
	}
	chunks := make([][]string, 0, (len(domains)+size-1)/size)
	for start := 0; start < len(domains); start += size {
		end := start + size
		if end > len(domains) {
			end = len(domains)
		}
		chunks = append(chunks, domains[start:end])
	}
	return chunks
}
