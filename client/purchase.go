package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"
)

// Purchaser starts checkout flows. Guards run before any network
// traffic so a tap on an unavailable plan fails instantly.
type Purchaser struct {
	client   *Client
	provider *Provider

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewPurchaser(client *Client, provider *Provider) *Purchaser {
	return &Purchaser{
		client:   client,
		provider: provider,
		inFlight: map[string]bool{},
	}
}

// InFlight reports whether a checkout for the plan is being created.
func (p *Purchaser) InFlight(planID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[planID]
}

// PurchasePlan creates a checkout session and returns the URL the host
// should navigate to. Anonymous users get ErrNotSignedIn, the free
// plan ErrPlanAlreadyActive, and unreleased plans ErrPlanComingSoon,
// all without touching the network.
func (p *Purchaser) PurchasePlan(ctx context.Context, planID string) (string, error) {
	if p.provider.User() == nil {
		return "", ErrNotSignedIn
	}
	switch planID {
	case "free":
		return "", ErrPlanAlreadyActive
	case "pro":
		return "", ErrPlanComingSoon
	}

	p.mu.Lock()
	if p.inFlight[planID] {
		p.mu.Unlock()
		return "", ErrPurchaseInFlight
	}
	p.inFlight[planID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inFlight, planID)
		p.mu.Unlock()
	}()

	result := struct {
		URL string `json:"url"`
	}{}
	payload := map[string]string{"plan_id": planID}
	if err := p.client.do(ctx, http.MethodPost, "/api/checkout", payload, &result); err != nil {
		return "", errors.Wrap(err, "failed to create checkout session")
	}
	return result.URL, nil
}
