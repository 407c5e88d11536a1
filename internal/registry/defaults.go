package registry

import "github.com/sells-group/signals-cli/internal/model"

// DefaultSignals returns the built-in signal set. Weights are relative
// importance, not percentages; disqualifiers carry no weight.
func DefaultSignals() []model.SignalDefinition {
	return []model.SignalDefinition{
		{
			ID:       "hiring_engineering",
			Name:     "Hiring engineers",
			Category: "hiring",
			Priority: model.PriorityHigh,
			Weight:   5,
			Question: "Is the company actively hiring for multiple engineering or technical roles?",
			QueryTemplates: []string{
				`"{company}" engineering jobs hiring`,
				`site:boards.greenhouse.io "{company}"`,
				`"{domain}" careers software engineer`,
			},
		},
		{
			ID:       "raised_funding",
			Name:     "Raised funding",
			Category: "funding",
			Priority: model.PriorityHigh,
			Weight:   5,
			Question: "Has the company announced a funding round (seed through growth) within the last twelve months?",
			QueryTemplates: []string{
				`"{company}" raises Series funding`,
				`"{company}" announces funding round`,
			},
		},
		{
			ID:       "hiring_sales",
			Name:     "Hiring go-to-market roles",
			Category: "hiring",
			Priority: model.PriorityMedium,
			Weight:   3,
			Question: "Is the company hiring sales, marketing, or customer-success roles?",
			QueryTemplates: []string{
				`"{company}" hiring account executive OR SDR`,
				`"{domain}" jobs sales`,
			},
		},
		{
			ID:       "expansion",
			Name:     "Geographic or office expansion",
			Category: "growth",
			Priority: model.PriorityMedium,
			Weight:   3,
			Question: "Has the company announced a new office, market entry, or major geographic expansion?",
			QueryTemplates: []string{
				`"{company}" opens new office`,
				`"{company}" expands into`,
			},
		},
		{
			ID:       "leadership_change",
			Name:     "New executive leadership",
			Category: "people",
			Priority: model.PriorityMedium,
			Weight:   2,
			Question: "Has the company hired or promoted a new C-level or VP-level executive recently?",
			QueryTemplates: []string{
				`"{company}" appoints chief OR VP`,
				`"{company}" new CTO OR CRO OR CFO`,
			},
		},
		{
			ID:       "product_launch",
			Name:     "Major product launch",
			Category: "product",
			Priority: model.PriorityLow,
			Weight:   1,
			Question: "Has the company launched a significant new product or platform capability?",
			QueryTemplates: []string{
				`"{company}" launches platform OR product`,
			},
		},
		{
			ID:             "already_customer",
			Name:           "Already a customer",
			Category:       "disqualifier",
			Priority:       model.PriorityHigh,
			IsDisqualifier: true,
			Question:       "Does the evidence explicitly show this company is already a customer or announced partner of ours?",
		},
		{
			ID:             "shutting_down",
			Name:           "Winding down operations",
			Category:       "disqualifier",
			Priority:       model.PriorityHigh,
			IsDisqualifier: true,
			Question:       "Does the evidence show the company is shutting down, in bankruptcy, or conducting mass layoffs of most staff?",
			QueryTemplates: []string{
				`"{company}" shuts down OR bankruptcy`,
			},
		},
	}
}

// DefaultProfile returns the built-in ICP used when no profile file is
// configured.
func DefaultProfile() model.Profile {
	return model.Profile{
		Offer:          "Revenue-operations advisory and fractional RevOps for B2B software companies",
		Industries:     []string{"B2B SaaS", "Fintech", "Developer tools"},
		Geographies:    []string{"United States", "Canada"},
		CompanySizeMin: 20,
		CompanySizeMax: 500,
		TargetTitles:   []string{"VP Sales", "CRO", "Head of Revenue Operations", "COO"},
		ExcludedTitles: []string{"Intern", "Student"},
	}
}
