package model

// CandidateCompany is one extracted company candidate. Candidates are unique
// by normalized domain; on collision the highest-confidence instance wins.
type CandidateCompany struct {
	CompanyName string  `json:"company_name"`
	Domain      string  `json:"domain"`
	SourceURL   string  `json:"source_url"`
	Snippet     string  `json:"snippet"`
	Confidence  float64 `json:"confidence"`
}

// DedupCandidates collapses candidates by domain, keeping the
// highest-confidence instance of each. Input order is preserved for the
// surviving entries.
func DedupCandidates(candidates []CandidateCompany) []CandidateCompany {
	best := make(map[string]int, len(candidates))
	var out []CandidateCompany
	for _, c := range candidates {
		idx, seen := best[c.Domain]
		if !seen {
			best[c.Domain] = len(out)
			out = append(out, c)
			continue
		}
		if c.Confidence > out[idx].Confidence {
			out[idx] = c
		}
	}
	return out
}
