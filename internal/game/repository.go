package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListSpecies(ctx context.Context) ([]Species, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, rarity, description, COALESCE(image_url, ''), min_weight, max_weight, base_points
		FROM fish_species
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query fish species: %w", err)
	}
	defer rows.Close()

	species := make([]Species, 0)
	for rows.Next() {
		var sp Species
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Rarity, &sp.Description, &sp.ImageURL, &sp.MinWeight, &sp.MaxWeight, &sp.BasePoints); err != nil {
			return nil, fmt.Errorf("scan fish species: %w", err)
		}
		species = append(species, sp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fish species: %w", err)
	}

	return species, nil
}

// BestWeight returns the player's heaviest recorded catch of the species.
// found is false when the player has never caught it.
func (r *Repository) BestWeight(ctx context.Context, playerID string, speciesID int64) (float64, bool, error) {
	var weight float64
	err := r.db.QueryRowContext(ctx, `
		SELECT weight
		FROM catches
		WHERE player_id = $1 AND fish_species_id = $2
		ORDER BY weight DESC
		LIMIT 1
	`, playerID, speciesID).Scan(&weight)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query best weight: %w", err)
	}

	return weight, true, nil
}

// RecordCatch inserts the catch and bumps the player's running totals in one
// transaction.
func (r *Repository) RecordCatch(ctx context.Context, c Catch) (Catch, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Catch{}, fmt.Errorf("generate uuid v7: %w", err)
	}
	c.ID = id.String()
	c.CaughtAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Catch{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catches (id, player_id, fish_species_id, weight, points, is_personal_best, caught_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.PlayerID, c.SpeciesID, c.Weight, c.Points, c.PersonalBest, c.CaughtAt); err != nil {
		return Catch{}, fmt.Errorf("insert catch: %w", err)
	}

	rareIncrement := 0
	if isRare(c.SpeciesRarity) {
		rareIncrement = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE players
		SET total_catches = total_catches + 1,
		    total_points = total_points + $2,
		    rare_catches = rare_catches + $3
		WHERE id = $1
	`, c.PlayerID, c.Points, rareIncrement); err != nil {
		return Catch{}, fmt.Errorf("update player totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Catch{}, fmt.Errorf("commit transaction: %w", err)
	}

	return c, nil
}

func (r *Repository) PlayerCatches(ctx context.Context, playerID string, limit int) ([]Catch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.player_id, c.fish_species_id, s.name, s.rarity, c.weight, c.points, c.is_personal_best, c.caught_at
		FROM catches c
		JOIN fish_species s ON s.id = c.fish_species_id
		WHERE c.player_id = $1
		ORDER BY c.caught_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query player catches: %w", err)
	}
	defer rows.Close()

	return scanCatches(rows)
}

func (r *Repository) PlayerStats(ctx context.Context, playerID string) (PlayerStats, error) {
	var stats PlayerStats
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, total_catches, total_points, rare_catches, created_at
		FROM players
		WHERE id = $1
	`, playerID).Scan(&stats.ID, &stats.Username, &stats.TotalCatches, &stats.TotalPoints, &stats.RareCatches, &stats.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PlayerStats{}, err
		}
		return PlayerStats{}, fmt.Errorf("query player stats: %w", err)
	}

	return stats, nil
}

// LeaderboardHeaviest ranks individual catches by weight.
func (r *Repository) LeaderboardHeaviest(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.player_id, p.username, s.name, s.rarity, c.weight
		FROM catches c
		JOIN players p ON p.id = c.player_id
		JOIN fish_species s ON s.id = c.fish_species_id
		ORDER BY c.weight DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query heaviest leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.SpeciesName, &e.Rarity, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan heaviest leaderboard: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heaviest leaderboard: %w", err)
	}

	return entries, nil
}

// LeaderboardMostCatches ranks players by total catches.
func (r *Repository) LeaderboardMostCatches(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return r.playerLeaderboard(ctx, "total_catches", limit)
}

// LeaderboardRareCatches ranks players by rare catches.
func (r *Repository) LeaderboardRareCatches(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return r.playerLeaderboard(ctx, "rare_catches", limit)
}

func (r *Repository) playerLeaderboard(ctx context.Context, orderColumn string, limit int) ([]LeaderboardEntry, error) {
	// orderColumn is always one of the two fixed callers above, never input.
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, username, total_catches, total_points, rare_catches
		FROM players
		ORDER BY %s DESC
		LIMIT $1
	`, orderColumn), limit)
	if err != nil {
		return nil, fmt.Errorf("query player leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.TotalCatches, &e.TotalPoints, &e.RareCatches); err != nil {
			return nil, fmt.Errorf("scan player leaderboard: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player leaderboard: %w", err)
	}

	return entries, nil
}

func scanCatches(rows *sql.Rows) ([]Catch, error) {
	catches := make([]Catch, 0)
	for rows.Next() {
		var c Catch
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.SpeciesID, &c.SpeciesName, &c.SpeciesRarity, &c.Weight, &c.Points, &c.PersonalBest, &c.CaughtAt); err != nil {
			return nil, fmt.Errorf("scan catch: %w", err)
		}
		catches = append(catches, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catches: %w", err)
	}

	return catches, nil
}
