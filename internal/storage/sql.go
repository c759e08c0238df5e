package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cart-enricher/internal/models"
)

// InsertEnriched inserts users inside one transaction using insertQuery, which
// takes the columns (user_id, first_name, last_name, age, gender, country,
// favorite_category) in that order.
func InsertEnriched(ctx context.Context, db *sql.DB, insertQuery string, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, u.ID, u.FirstName, u.LastName, u.Age, u.Gender, u.Country, u.FavoriteCategory); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert user %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
