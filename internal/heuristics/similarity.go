package heuristics

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/solsecurity/pkg/models"
)

// Address Similarity Matcher
//
// Address poisoning relies on wallets and explorers truncating addresses
// to a few leading and trailing characters (e.g. "WXYZ…abcd"). A sender
// whose visible ends match one of the victim's past recipients is a
// mimicry candidate.
//
// Two strategies are available and are never blended:
//   prefix4  binary check on the leading or trailing 4 characters
//   tiered   graduated 0-5 visual tier, match at or above a minimum tier
//
// All comparisons are done on lower-cased copies; output keeps the
// original casing.

const (
	StrategyPrefix4 = "prefix4"
	StrategyTiered  = "tiered"
)

// MaxRunLength caps prefix/suffix run counting; runs beyond 6 add no tier.
const MaxRunLength = 6

// Prefix4Window is the number of leading/trailing characters compared by prefix4.
const Prefix4Window = 4

// DefaultMinTier is the tiered strategy's default match threshold.
const DefaultMinTier = 3

// SimilarityStrategy decides whether a sender mimics a recipient. Both
// addresses are already lower-cased and known not to be identical.
type SimilarityStrategy interface {
	Name() string
	Match(sender, recipient string) (tier int, ok bool)
}

// Prefix4Strategy matches when the first or last 4 characters agree.
type Prefix4Strategy struct{}

func (Prefix4Strategy) Name() string { return StrategyPrefix4 }

func (Prefix4Strategy) Match(sender, recipient string) (int, bool) {
	if len(sender) < Prefix4Window || len(recipient) < Prefix4Window {
		return 0, false
	}
	headMatch := sender[:Prefix4Window] == recipient[:Prefix4Window]
	tailMatch := sender[len(sender)-Prefix4Window:] == recipient[len(recipient)-Prefix4Window:]
	if !headMatch && !tailMatch {
		return 0, false
	}
	return PairTier(sender, recipient), true
}

// TieredStrategy matches when the visual tier reaches MinTier.
type TieredStrategy struct {
	MinTier int
}

func (TieredStrategy) Name() string { return StrategyTiered }

func (s TieredStrategy) Match(sender, recipient string) (int, bool) {
	tier := PairTier(sender, recipient)
	return tier, tier >= s.MinTier
}

// NewStrategy resolves a configured strategy name.
func NewStrategy(name string, minTier int) (SimilarityStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyPrefix4:
		return Prefix4Strategy{}, nil
	case StrategyTiered:
		if minTier < 1 || minTier > 5 {
			minTier = DefaultMinTier
		}
		return TieredStrategy{MinTier: minTier}, nil
	default:
		return nil, fmt.Errorf("unknown similarity strategy %q", name)
	}
}

// CommonPrefixLen counts equal leading bytes, capped at MaxRunLength
func CommonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && n < MaxRunLength && a[n] == b[n] {
		n++
	}
	return n
}

// CommonSuffixLen counts equal trailing bytes, capped at MaxRunLength
func CommonSuffixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && n < MaxRunLength && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// PairTier is the visual tier of two lower-cased addresses
func PairTier(a, b string) int {
	return VisualTier(CommonPrefixLen(a, b), CommonSuffixLen(a, b))
}

// VisualTier maps prefix run p and suffix run s to a 0-5 tier.
// Rows are evaluated top-down and each condition means "at least".
func VisualTier(p, s int) int {
	both := func(x, y int) bool {
		return (p >= x && s >= y) || (p >= y && s >= x)
	}
	either := func(x int) bool {
		return p >= x || s >= x
	}

	switch {
	case either(6), both(5, 1), both(4, 2), both(3, 3):
		return 5
	case both(4, 1), both(3, 2):
		return 4
	case both(2, 2), either(3):
		return 3
	case both(2, 1), either(2):
		return 2
	case both(1, 1), either(1):
		return 1
	default:
		return 0
	}
}

// matcherFanOut is the sender count above which pairs are evaluated in parallel
const matcherFanOut = 64

// MatchMimicry evaluates every sender × recipient pair and returns one match
// per qualifying pair, in sender order then recipient order.
func MatchMimicry(senders []models.SenderRecord, recipients []string, strategy SimilarityStrategy) []models.MimicryMatch {
	if len(senders) == 0 || len(recipients) == 0 {
		return nil
	}

	lowered := make([]string, len(recipients))
	for i, r := range recipients {
		lowered[i] = strings.ToLower(r)
	}

	perSender := make([][]models.MimicryMatch, len(senders))
	matchOne := func(i int) {
		sender := senders[i]
		s := strings.ToLower(sender.Address)
		for j, r := range lowered {
			if s == r {
				continue
			}
			if tier, ok := strategy.Match(s, r); ok {
				perSender[i] = append(perSender[i], models.MimicryMatch{
					Sender:          sender,
					MimickedAddress: recipients[j],
					VisualTier:      tier,
				})
			}
		}
	}

	if len(senders) < matcherFanOut {
		for i := range senders {
			matchOne(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range senders {
			g.Go(func() error {
				matchOne(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var matches []models.MimicryMatch
	for _, m := range perSender {
		matches = append(matches, m...)
	}
	return matches
}
