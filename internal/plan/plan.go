// Package plan enforces the per-organization resource ceilings from
// spec.md §6: FREE orgs are capped on boards and cards-per-board, PRO orgs
// are unlimited. This is a SUPPLEMENTED FEATURE — the distilled spec names
// the limit table but the distillation dropped the enforcement path; it is
// restored here the way internal/ratelimit enforces its own static table,
// since both are process-wide config-driven ceilings checked before a
// mutating DAL call.
package plan

import "github.com/boardkeep/kernel/internal/apperr"

type Tier string

const (
	Free Tier = "FREE"
	Pro  Tier = "PRO"
)

// Unlimited marks a ceiling that never triggers.
const Unlimited = -1

type Limits struct {
	Boards        int
	CardsPerBoard int
}

// DefaultLimits is the table from spec.md §6.
func DefaultLimits() map[Tier]Limits {
	return map[Tier]Limits{
		Free: {Boards: 50, CardsPerBoard: 500},
		Pro:  {Boards: Unlimited, CardsPerBoard: Unlimited},
	}
}

// CheckBoards returns a CONFLICT error if creating one more board would
// exceed tier's ceiling.
func CheckBoards(limits map[Tier]Limits, tier Tier, currentCount int) error {
	l, ok := limits[tier]
	if !ok || l.Boards == Unlimited {
		return nil
	}
	if currentCount >= l.Boards {
		return apperr.Conflictf("board limit reached for this plan")
	}
	return nil
}

// CheckCards returns a CONFLICT error if creating one more card on a board
// would exceed tier's per-board ceiling.
func CheckCards(limits map[Tier]Limits, tier Tier, currentCount int) error {
	l, ok := limits[tier]
	if !ok || l.CardsPerBoard == Unlimited {
		return nil
	}
	if currentCount >= l.CardsPerBoard {
		return apperr.Conflictf("card limit reached for this board's plan")
	}
	return nil
}
