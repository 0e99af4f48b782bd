package game

import "time"

type Species struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Rarity      string  `json:"rarity"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url,omitempty"`
	MinWeight   float64 `json:"min_weight"`
	MaxWeight   float64 `json:"max_weight"`
	BasePoints  int     `json:"base_points"`
}

type Catch struct {
	ID            string    `json:"id"`
	PlayerID      string    `json:"player_id"`
	SpeciesID     int64     `json:"fish_species_id"`
	SpeciesName   string    `json:"fish_name"`
	SpeciesRarity string    `json:"fish_rarity"`
	Weight        float64   `json:"weight"`
	Points        int       `json:"points"`
	PersonalBest  bool      `json:"is_personal_best"`
	CaughtAt      time.Time `json:"caught_at"`
}

type PlayerStats struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	TotalCatches int       `json:"total_catches"`
	TotalPoints  int64     `json:"total_points"`
	RareCatches  int       `json:"rare_catches"`
	CreatedAt    time.Time `json:"created_at"`
}

type LeaderboardEntry struct {
	PlayerID     string  `json:"player_id"`
	Username     string  `json:"username"`
	SpeciesName  string  `json:"fish_name,omitempty"`
	Rarity       string  `json:"rarity,omitempty"`
	Weight       float64 `json:"weight,omitempty"`
	TotalCatches int     `json:"total_catches,omitempty"`
	TotalPoints  int64   `json:"total_points,omitempty"`
	RareCatches  int     `json:"rare_catches,omitempty"`
}

// CatchResult is what a successful cast returns to the handler layer.
type CatchResult struct {
	Fish         Species
	Weight       float64
	Points       int
	PersonalBest bool
	Message      string
}
