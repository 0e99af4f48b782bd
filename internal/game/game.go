package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"fishing-api/internal/observability"
)

var ErrNoSpecies = errors.New("no fish species available")

// Rarity odds out of 100. A cast first rolls a rarity, then picks uniformly
// among that rarity's species.
var rarityWeights = []struct {
	rarity string
	weight int
}{
	{"common", 50},
	{"uncommon", 25},
	{"rare", 15},
	{"epic", 7},
	{"legendary", 3},
}

func isRare(rarity string) bool {
	switch rarity {
	case "rare", "epic", "legendary":
		return true
	}
	return false
}

// Game holds the fishing mechanics: the species catalog cached at startup
// and the random draws behind a cast. All persistence goes through the
// repository.
type Game struct {
	repo   *Repository
	logger *observability.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	species []Species
}

func New(repo *Repository, logger *observability.Logger) *Game {
	return &Game{
		repo:   repo,
		logger: logger,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// LoadSpecies fills the catalog cache. Called once at startup; a cast
// against an empty cache fails with ErrNoSpecies rather than touching the
// database.
func (g *Game) LoadSpecies(ctx context.Context) error {
	species, err := g.repo.ListSpecies(ctx)
	if err != nil {
		return fmt.Errorf("load fish species: %w", err)
	}

	g.mu.Lock()
	g.species = species
	g.mu.Unlock()

	g.logger.Info("fish_species_loaded", map[string]any{"count": len(species)})
	return nil
}

// SpeciesCatalog returns a copy of the cached catalog.
func (g *Game) SpeciesCatalog() []Species {
	g.mu.Lock()
	defer g.mu.Unlock()

	catalog := make([]Species, len(g.species))
	copy(catalog, g.species)
	return catalog
}

// Cast runs one fishing action for the player: roll a species, roll a
// weight, check the personal best, and record the catch.
func (g *Game) Cast(ctx context.Context, playerID string) (CatchResult, error) {
	fish, weight, err := g.roll()
	if err != nil {
		return CatchResult{}, err
	}

	best, found, err := g.repo.BestWeight(ctx, playerID, fish.ID)
	if err != nil {
		return CatchResult{}, fmt.Errorf("check personal best: %w", err)
	}
	personalBest := !found || weight > best

	points := pointsFor(fish, weight)

	if _, err := g.repo.RecordCatch(ctx, Catch{
		PlayerID:      playerID,
		SpeciesID:     fish.ID,
		SpeciesName:   fish.Name,
		SpeciesRarity: fish.Rarity,
		Weight:        weight,
		Points:        points,
		PersonalBest:  personalBest,
	}); err != nil {
		return CatchResult{}, fmt.Errorf("record catch: %w", err)
	}

	message := fmt.Sprintf("You caught a %s!", fish.Name)
	if personalBest {
		message += " Personal Best!"
	}

	return CatchResult{
		Fish:         fish,
		Weight:       weight,
		Points:       points,
		PersonalBest: personalBest,
		Message:      message,
	}, nil
}

func (g *Game) roll() (Species, float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.species) == 0 {
		return Species{}, 0, ErrNoSpecies
	}

	byRarity := make(map[string][]Species, len(rarityWeights))
	for _, sp := range g.species {
		byRarity[sp.Rarity] = append(byRarity[sp.Rarity], sp)
	}

	// Roll only across rarities the catalog actually has, keeping their
	// relative odds.
	total := 0
	for _, rw := range rarityWeights {
		if len(byRarity[rw.rarity]) > 0 {
			total += rw.weight
		}
	}
	if total == 0 {
		return Species{}, 0, ErrNoSpecies
	}

	pick := g.rng.IntN(total)
	var pool []Species
	for _, rw := range rarityWeights {
		candidates := byRarity[rw.rarity]
		if len(candidates) == 0 {
			continue
		}
		if pick < rw.weight {
			pool = candidates
			break
		}
		pick -= rw.weight
	}

	fish := pool[g.rng.IntN(len(pool))]
	return fish, g.rollWeight(fish), nil
}

// rollWeight draws from a capped exponential so small catches dominate but
// trophy weights near the species maximum stay possible.
func (g *Game) rollWeight(fish Species) float64 {
	factor := g.rng.ExpFloat64() / 1.5
	if factor > 3.0 {
		factor = 3.0
	}

	weight := fish.MinWeight + (fish.MaxWeight-fish.MinWeight)*(factor/3.0)
	weight = math.Max(fish.MinWeight, math.Min(weight, fish.MaxWeight))
	return math.Round(weight*100) / 100
}

// pointsFor scales base points by where the weight falls inside the species
// range: a minimum-weight catch scores 1x, a maximum-weight catch 2x.
func pointsFor(fish Species, weight float64) int {
	multiplier := 1.0
	if fish.MaxWeight > fish.MinWeight {
		multiplier += (weight - fish.MinWeight) / (fish.MaxWeight - fish.MinWeight)
	}
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	if multiplier > 2.0 {
		multiplier = 2.0
	}
	return int(math.Round(float64(fish.BasePoints) * multiplier))
}
