package model

import (
	"strconv"
	"strings"
)

// Profile is the Ideal Customer Profile driving query planning: what is
// being sold and to whom. Loaded from registry configuration; immutable
// during a run.
type Profile struct {
	Offer          string   `json:"offer" yaml:"offer"`
	Industries     []string `json:"industries" yaml:"industries"`
	Geographies    []string `json:"geographies" yaml:"geographies"`
	CompanySizeMin int      `json:"company_size_min" yaml:"company_size_min"`
	CompanySizeMax int      `json:"company_size_max" yaml:"company_size_max"`
	TargetTitles   []string `json:"target_titles" yaml:"target_titles"`
	ExcludedTitles []string `json:"excluded_titles" yaml:"excluded_titles"`
}

// Summary renders the profile as a compact single paragraph for prompts.
func (p Profile) Summary() string {
	var b strings.Builder
	b.WriteString("Offer: " + p.Offer)
	if len(p.Industries) > 0 {
		b.WriteString(". Industries: " + strings.Join(p.Industries, ", "))
	}
	if len(p.Geographies) > 0 {
		b.WriteString(". Geographies: " + strings.Join(p.Geographies, ", "))
	}
	if p.CompanySizeMin > 0 || p.CompanySizeMax > 0 {
		b.WriteString(". Company size: ")
		switch {
		case p.CompanySizeMax <= 0:
			b.WriteString(strconv.Itoa(p.CompanySizeMin) + "+")
		case p.CompanySizeMin <= 0:
			b.WriteString("up to " + strconv.Itoa(p.CompanySizeMax))
		default:
			b.WriteString(strconv.Itoa(p.CompanySizeMin) + "-" + strconv.Itoa(p.CompanySizeMax))
		}
		b.WriteString(" employees")
	}
	if len(p.TargetTitles) > 0 {
		b.WriteString(". Target roles: " + strings.Join(p.TargetTitles, ", "))
	}
	if len(p.ExcludedTitles) > 0 {
		b.WriteString(". Avoid roles: " + strings.Join(p.ExcludedTitles, ", "))
	}
	return b.String()
}
