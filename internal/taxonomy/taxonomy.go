// Package taxonomy holds the two fixed category enumerations: the one the
// model classifies into and the one human reviewers override with. They are
// separate types on purpose and are never converted into one another.
package taxonomy

// Category is a bucket of the AI classification taxonomy.
type Category string

const (
	Overview    Category = "overview"
	Definitions Category = "definitions"
	Eligibility Category = "eligibility"
	Procedure   Category = "procedure"
	Calculation Category = "calculation"
	Reference   Category = "reference"
	Other       Category = "other"
)

// Fallback is the category unrecognized model output folds to.
const Fallback = Other

var categories = [...]Category{
	Overview,
	Definitions,
	Eligibility,
	Procedure,
	Calculation,
	Reference,
	Other,
}

// Categories returns the AI taxonomy in its canonical order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

// IsCategory reports whether s is an exact member of the AI taxonomy.
func IsCategory(s string) bool {
	for _, c := range categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// CoerceCategory returns s as a Category, or Fallback when it is not a member.
func CoerceCategory(s string) Category {
	if IsCategory(s) {
		return Category(s)
	}
	return Fallback
}

// Override is a label from the human-override taxonomy.
type Override string

var overrides = [...]Override{
	"General",
	"Tax Rules",
	"Deductions & Credits",
	"Income",
	"Filing & Payments",
	"Business",
	"Retirement",
	"Investing",
	"Health",
	"Education",
	"International",
	"Other",
}

// OverrideOptions returns the human-override taxonomy in display order.
func OverrideOptions() []Override {
	out := make([]Override, len(overrides))
	copy(out, overrides[:])
	return out
}

// IsOverride reports whether s is an exact, case-sensitive member of the
// human-override taxonomy.
func IsOverride(s string) bool {
	for _, o := range overrides {
		if string(o) == s {
			return true
		}
	}
	return false
}
