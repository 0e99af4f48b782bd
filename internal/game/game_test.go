package game

import (
	"math/rand/v2"
	"testing"

	"fishing-api/internal/observability"
)

func seededGame(species []Species) *Game {
	g := New(nil, observability.NewLogger())
	g.rng = rand.New(rand.NewPCG(42, 7))
	g.species = species
	return g
}

func testCatalog() []Species {
	return []Species{
		{ID: 1, Name: "Bluegill", Rarity: "common", MinWeight: 0.1, MaxWeight: 1.2, BasePoints: 10},
		{ID: 2, Name: "Rainbow Trout", Rarity: "uncommon", MinWeight: 0.3, MaxWeight: 5.5, BasePoints: 25},
		{ID: 3, Name: "Northern Pike", Rarity: "rare", MinWeight: 1.5, MaxWeight: 16, BasePoints: 60},
		{ID: 4, Name: "Muskellunge", Rarity: "epic", MinWeight: 3, MaxWeight: 25, BasePoints: 150},
		{ID: 5, Name: "Golden Koi", Rarity: "legendary", MinWeight: 0.5, MaxWeight: 8, BasePoints: 400},
	}
}

func TestRoll_EmptyCatalog(t *testing.T) {
	g := seededGame(nil)
	if _, _, err := g.roll(); err != ErrNoSpecies {
		t.Fatalf("expected ErrNoSpecies, got %v", err)
	}
}

func TestRoll_WeightAlwaysInSpeciesRange(t *testing.T) {
	g := seededGame(testCatalog())

	for i := 0; i < 10_000; i++ {
		fish, weight, err := g.roll()
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		if weight < fish.MinWeight || weight > fish.MaxWeight {
			t.Fatalf("%s weight %.2f outside [%.2f, %.2f]", fish.Name, weight, fish.MinWeight, fish.MaxWeight)
		}
	}
}

func TestRoll_RarityDistribution(t *testing.T) {
	g := seededGame(testCatalog())

	const draws = 50_000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		fish, _, err := g.roll()
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		counts[fish.Rarity]++
	}

	// commons roughly half, legendaries a few percent; generous bounds so
	// the test is not flaky across seeds
	if ratio := float64(counts["common"]) / draws; ratio < 0.45 || ratio > 0.55 {
		t.Errorf("common ratio = %.3f, want ~0.50", ratio)
	}
	if ratio := float64(counts["legendary"]) / draws; ratio < 0.015 || ratio > 0.045 {
		t.Errorf("legendary ratio = %.3f, want ~0.03", ratio)
	}
	if counts["uncommon"] == 0 || counts["rare"] == 0 || counts["epic"] == 0 {
		t.Error("every rarity in the catalog should be reachable")
	}
}

func TestRoll_SkipsMissingRarities(t *testing.T) {
	g := seededGame([]Species{
		{ID: 5, Name: "Golden Koi", Rarity: "legendary", MinWeight: 0.5, MaxWeight: 8, BasePoints: 400},
	})

	for i := 0; i < 100; i++ {
		fish, _, err := g.roll()
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		if fish.Rarity != "legendary" {
			t.Fatalf("only legendary species exist, rolled %s", fish.Rarity)
		}
	}
}

func TestRollWeight_SmallCatchesDominate(t *testing.T) {
	g := seededGame(nil)
	fish := Species{MinWeight: 1, MaxWeight: 11}

	below := 0
	const draws = 10_000
	midpoint := (fish.MinWeight + fish.MaxWeight) / 2
	for i := 0; i < draws; i++ {
		if g.rollWeight(fish) < midpoint {
			below++
		}
	}

	if ratio := float64(below) / draws; ratio < 0.7 {
		t.Errorf("expected the capped exponential to favor small weights, got %.3f below midpoint", ratio)
	}
}

func TestPointsFor_Bounds(t *testing.T) {
	fish := Species{MinWeight: 1, MaxWeight: 3, BasePoints: 100}

	if got := pointsFor(fish, 1); got != 100 {
		t.Errorf("minimum-weight catch = %d points, want 100", got)
	}
	if got := pointsFor(fish, 3); got != 200 {
		t.Errorf("maximum-weight catch = %d points, want 200", got)
	}
	if got := pointsFor(fish, 2); got != 150 {
		t.Errorf("midpoint catch = %d points, want 150", got)
	}

	// degenerate range still scores the base
	flat := Species{MinWeight: 2, MaxWeight: 2, BasePoints: 50}
	if got := pointsFor(flat, 2); got != 50 {
		t.Errorf("flat-range catch = %d points, want 50", got)
	}
}

func TestIsRare(t *testing.T) {
	for rarity, want := range map[string]bool{
		"common":    false,
		"uncommon":  false,
		"rare":      true,
		"epic":      true,
		"legendary": true,
	} {
		if got := isRare(rarity); got != want {
			t.Errorf("isRare(%q) = %v, want %v", rarity, got, want)
		}
	}
}
