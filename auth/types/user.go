package types

import "time"

// ProviderProfile is the display identity one provider hands back.
type ProviderProfile struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email,omitempty"`
	ID      string `json:"id,omitempty"`
}

// UserProfile is either empty or carries a Google identity. Facebook (or
// the guest marker) gates access to the main view.
type UserProfile struct {
	Google    *ProviderProfile `json:"google,omitempty"`
	Facebook  *ProviderProfile `json:"facebook,omitempty"`
	IsFBGuest bool             `json:"isFBGuest,omitempty"`
	// Exp is Unix seconds.
	Exp *int64 `json:"exp,omitempty"`
}

func (p UserProfile) IsEmpty() bool {
	return p.Google == nil && p.Facebook == nil && !p.IsFBGuest && p.Exp == nil
}

// Bound reports whether the second identity requirement is satisfied.
func (p UserProfile) Bound() bool {
	return p.Facebook != nil || p.IsFBGuest
}

func (p UserProfile) Expired(now time.Time) bool {
	if p.Exp == nil {
		return false
	}
	return !now.Before(time.Unix(*p.Exp, 0))
}

func (p UserProfile) Clone() UserProfile {
	out := UserProfile{IsFBGuest: p.IsFBGuest}
	if p.Google != nil {
		g := *p.Google
		out.Google = &g
	}
	if p.Facebook != nil {
		f := *p.Facebook
		out.Facebook = &f
	}
	if p.Exp != nil {
		e := *p.Exp
		out.Exp = &e
	}
	return out
}

// MergeExp keeps the earliest of the current expiry and exp.
func (p *UserProfile) MergeExp(exp int64) {
	if p.Exp == nil || exp < *p.Exp {
		p.Exp = &exp
	}
}
