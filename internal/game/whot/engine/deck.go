package engine

import (
	_ "embed"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

//go:embed deck.yaml
var defaultDeckYAML []byte

// DeckSpec describes the composition of a whot deck.
type DeckSpec struct {
	// HandSize is the number of cards dealt to each player.
	HandSize int
	// WhotCount is the number of wildcard whot cards in the deck.
	WhotCount int
	// Suits lists the shaped suits and the numbers each contains.
	Suits []SuitSpec
}

// SuitSpec is one shaped suit's number set.
type SuitSpec struct {
	Suit    Suit
	Numbers []int
}

type yamlDeckFile struct {
	Deck yamlDeck `yaml:"deck"`
}

type yamlDeck struct {
	HandSize  int            `yaml:"hand_size"`
	WhotCount int            `yaml:"whot_count"`
	Suits     []yamlSuitSpec `yaml:"suits"`
}

type yamlSuitSpec struct {
	Suit    string `yaml:"suit"`
	Numbers []int  `yaml:"numbers"`
}

// LoadDeckSpec parses and validates a deck definition from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the deck schema.
// Postcondition: Returns a validated DeckSpec or a non-nil error.
func LoadDeckSpec(data []byte) (*DeckSpec, error) {
	var file yamlDeckFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing deck YAML: %w", err)
	}

	spec := &DeckSpec{
		HandSize:  file.Deck.HandSize,
		WhotCount: file.Deck.WhotCount,
	}
	for _, s := range file.Deck.Suits {
		spec.Suits = append(spec.Suits, SuitSpec{
			Suit:    Suit(s.Suit),
			Numbers: s.Numbers,
		})
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("validating deck spec: %w", err)
	}
	return spec, nil
}

// DefaultDeckSpec returns the embedded standard deck definition.
//
// Postcondition: Returns a validated DeckSpec; panics only if the embedded
// definition is corrupt, which is a build defect.
func DefaultDeckSpec() *DeckSpec {
	spec, err := LoadDeckSpec(defaultDeckYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded deck definition invalid: %v", err))
	}
	return spec
}

// Validate checks the deck spec invariants.
//
// Postcondition: Returns nil if the spec is usable, or an error naming the violation.
func (d *DeckSpec) Validate() error {
	if d.HandSize < 1 {
		return fmt.Errorf("hand_size must be >= 1, got %d", d.HandSize)
	}
	if d.WhotCount < 0 {
		return fmt.Errorf("whot_count must be >= 0, got %d", d.WhotCount)
	}
	if len(d.Suits) == 0 {
		return fmt.Errorf("deck must define at least one suit")
	}
	seen := map[Suit]bool{}
	for _, s := range d.Suits {
		if !s.Suit.IsShaped() {
			return fmt.Errorf("unknown suit %q", s.Suit)
		}
		if seen[s.Suit] {
			return fmt.Errorf("duplicate suit %q", s.Suit)
		}
		seen[s.Suit] = true
		if len(s.Numbers) == 0 {
			return fmt.Errorf("suit %q has no numbers", s.Suit)
		}
		for _, n := range s.Numbers {
			if n < 1 || n >= numberWhot {
				return fmt.Errorf("suit %q has out-of-range number %d", s.Suit, n)
			}
		}
	}
	return nil
}

// Size returns the total number of cards the spec produces.
func (d *DeckSpec) Size() int {
	total := d.WhotCount
	for _, s := range d.Suits {
		total += len(s.Numbers)
	}
	return total
}

// Build produces the full deck, shuffled with rng.
//
// Precondition: rng must be non-nil.
// Postcondition: Returns a shuffled slice of Size() cards.
func (d *DeckSpec) Build(rng *rand.Rand) []Card {
	cards := make([]Card, 0, d.Size())
	for _, s := range d.Suits {
		for _, n := range s.Numbers {
			cards = append(cards, Card{Suit: s.Suit, Number: n})
		}
	}
	for i := 0; i < d.WhotCount; i++ {
		cards = append(cards, Card{Suit: SuitWhot, Number: numberWhot})
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}
