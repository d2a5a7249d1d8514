package client

import (
	"net/url"
	"sync"
	"time"
)

// Banner kinds surfaced after a redirect back into the app.
const (
	BannerPurchaseSuccess  = "purchase_success"
	BannerPurchaseCanceled = "purchase_canceled"
	BannerAuthError        = "auth_error"
)

// bannerDuration is how long a transient banner stays up.
const bannerDuration = 5 * time.Second

// Banner is a transient notice shown once after navigation.
type Banner struct {
	Kind    string
	Message string
}

// Banners tracks the currently visible transient banner.
type Banners struct {
	mu      sync.Mutex
	current *Banner
	timer   *time.Timer
}

func NewBanners() *Banners {
	return &Banners{}
}

// Current returns the visible banner, or nil.
func (b *Banners) Current() *Banner {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	banner := *b.current
	return &banner
}

// Show replaces the visible banner and schedules its dismissal.
func (b *Banners) Show(kind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.current = &Banner{Kind: kind, Message: message}
	b.timer = time.AfterFunc(bannerDuration, b.Dismiss)
}

// Dismiss hides the banner immediately.
func (b *Banners) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}

// ConsumeRedirectParams inspects the query string the app landed with,
// raises the matching banner, and returns the cleaned URL the host
// should rewrite the address bar to. Checkout return flags, auth
// failure flags, and leftover OAuth codes never survive a reload.
func (b *Banners) ConsumeRedirectParams(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}

	query := u.Query()
	switch {
	case query.Get("success") == "true":
		b.Show(BannerPurchaseSuccess, "Payment successful! Your credits have been added.")
	case query.Get("canceled") == "true":
		b.Show(BannerPurchaseCanceled, "Checkout canceled. No charges were made.")
	case query.Get("error") == "auth_error":
		b.Show(BannerAuthError, "Sign-in failed. Please try again.")
	}

	for _, param := range []string{"success", "canceled", "error", "code", "state"} {
		query.Del(param)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
