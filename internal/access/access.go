package access

import "strings"

// Level is a proficiency tier. It sequences content and keys the subscription gate.
type Level string

const (
	LevelA1 Level = "A1"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
)

type Reason string

const (
	ReasonOK                   Reason = "ok"
	ReasonInactive             Reason = "inactive"
	ReasonSubscriptionRequired Reason = "subscription_required"
)

// State is the part of a student record that gates access.
type State struct {
	HasSubscription bool `json:"hasSubscription"`
	IsActive        bool `json:"isActive"`
}

// DefaultState is used when a student has no record yet.
func DefaultState() State {
	return State{HasSubscription: false, IsActive: true}
}

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// Policy decides access from a configured set of gated (premium) levels.
// The zero value gates nothing.
type Policy struct {
	gated map[Level]struct{}
}

func NewPolicy(gated ...Level) *Policy {
	p := &Policy{gated: make(map[Level]struct{}, len(gated))}
	for _, l := range gated {
		l = Level(strings.TrimSpace(string(l)))
		if l == "" {
			continue
		}
		p.gated[l] = struct{}{}
	}
	return p
}

// PolicyFromStrings is a convenience for config-provided level lists.
func PolicyFromStrings(levels []string) *Policy {
	ls := make([]Level, 0, len(levels))
	for _, s := range levels {
		ls = append(ls, Level(s))
	}
	return NewPolicy(ls...)
}

func (p *Policy) RequiresSubscription(level Level) bool {
	if p == nil {
		return false
	}
	_, ok := p.gated[level]
	return ok
}

// GatedLevels returns the configured premium levels in no particular order.
func (p *Policy) GatedLevels() []Level {
	if p == nil {
		return nil
	}
	out := make([]Level, 0, len(p.gated))
	for l := range p.gated {
		out = append(out, l)
	}
	return out
}

// CanAccess applies the rules in order: inactive accounts are always denied,
// then gated levels need a subscription.
func (p *Policy) CanAccess(level Level, st State) Decision {
	if !st.IsActive {
		return Decision{Allowed: false, Reason: ReasonInactive}
	}
	if p.RequiresSubscription(level) && !st.HasSubscription {
		return Decision{Allowed: false, Reason: ReasonSubscriptionRequired}
	}
	return Decision{Allowed: true, Reason: ReasonOK}
}
