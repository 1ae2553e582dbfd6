// Package consent remembers whether the player allows YouTube embeds and
// decides how each question's media is shown.
package consent

import (
	"context"
	"fmt"

	"github.com/pigwin-3/historie-q/internal/kvstore"
)

type Status int

const (
	Unset Status = iota
	Granted
	Declined
)

func (s Status) String() string {
	switch s {
	case Granted:
		return "granted"
	case Declined:
		return "declined"
	default:
		return "unset"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Gate struct {
	kv kvstore.Store
}

func NewGate(kv kvstore.Store) *Gate { return &Gate{kv: kv} }

// Status tells "never asked" apart from an explicit decline.
func (g *Gate) Status(ctx context.Context) (Status, error) {
	v, ok, err := g.kv.Get(ctx, kvstore.KeyConsent)
	if err != nil {
		return Unset, fmt.Errorf("consent: %w", err)
	}
	switch {
	case !ok:
		return Unset, nil
	case v == "true":
		return Granted, nil
	default:
		return Declined, nil
	}
}

func (g *Gate) HasConsent(ctx context.Context) (bool, error) {
	s, err := g.Status(ctx)
	return s == Granted, err
}

// SetConsent overwrites any earlier choice.
func (g *Gate) SetConsent(ctx context.Context, allowed bool) error {
	v := "false"
	if allowed {
		v = "true"
	}
	if err := g.kv.Set(ctx, kvstore.KeyConsent, v); err != nil {
		return fmt.Errorf("consent: %w", err)
	}
	return nil
}
