// Package plan defines the static subscription plan catalog.
package plan

// Plan ids. Only Plus is purchasable today.
const (
	Free = "free"
	Plus = "plus"
	Pro  = "pro"
)

// Plan is one subscription tier.
type Plan struct {
	ID          string
	Name        string
	Price       string
	Description string
	Features    []string
	// Grants credited to the balance on purchase.
	Messages     int32
	MoodCheckins int32
	Popular      bool
	// PriceCents is the Stripe unit amount. Zero for non-purchasable plans.
	PriceCents int64
}

var catalog = []Plan{
	{
		ID:           Free,
		Name:         "Free Trial",
		Price:        "$0",
		Description:  "20 messages included",
		Messages:     20,
		MoodCheckins: 10,
		Features: []string{
			"Basic CBT guidance",
			"5 Mood check-ins and reports",
			"3 AI companions",
		},
	},
	{
		ID:           Plus,
		Name:         "Plus",
		Price:        "$4.99",
		Description:  "200 messages + 60 mood check-ins and reports",
		Messages:     200,
		MoodCheckins: 60,
		Popular:      true,
		PriceCents:   499,
		Features: []string{
			"Advanced CBT-based guidance",
			"Mood trend analysis",
			"Priority support",
		},
	},
	{
		ID:           Pro,
		Name:         "Pro",
		Price:        "$9.99",
		Description:  "500 messages + 150 mood check-ins and reports",
		Messages:     500,
		MoodCheckins: 150,
		PriceCents:   999,
		Features: []string{
			"Everything in Plus",
			"Advanced analytics",
			"Unlimited access",
		},
	},
}

// List returns all plans in display order.
func List() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Get returns the plan with the given id.
func Get(id string) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// IsPurchasable reports whether the plan can be bought right now.
// The free plan is already active and Pro has not launched yet.
func IsPurchasable(id string) bool {
	p, ok := Get(id)
	return ok && p.ID != Free && p.ID != Pro && p.PriceCents > 0
}
