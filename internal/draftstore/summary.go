// internal/draftstore/summary.go
package draftstore

import (
	"context"
	"database/sql"
	"fmt"

	"draft-engine/internal/models"
)

// PostgresSummaryIndex maintains one row per draft in draft_summaries, written
// alongside every snapshot write and queried by the draft collection.
type PostgresSummaryIndex struct {
	db *sql.DB
}

func NewPostgresSummaryIndex(db *sql.DB) *PostgresSummaryIndex {
	return &PostgresSummaryIndex{db: db}
}

func (i *PostgresSummaryIndex) Upsert(ctx context.Context, summary models.DraftSummary) error {
	query := `
		INSERT INTO draft_summaries (id, user_id, property_name, address, status, completion_percentage, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			property_name = EXCLUDED.property_name,
			address = EXCLUDED.address,
			status = EXCLUDED.status,
			completion_percentage = EXCLUDED.completion_percentage,
			last_modified = EXCLUDED.last_modified`

	_, err := i.db.ExecContext(ctx, query,
		summary.ID, summary.UserID, summary.PropertyName, summary.Address,
		summary.Status, summary.CompletionPercentage, summary.LastModified,
	)
	if err != nil {
		return fmt.Errorf("upsert draft summary: %w", err)
	}
	return nil
}

func (i *PostgresSummaryIndex) Delete(ctx context.Context, draftID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM draft_summaries WHERE id = $1`, draftID)
	if err != nil {
		return fmt.Errorf("delete draft summary: %w", err)
	}
	return nil
}

func (i *PostgresSummaryIndex) DeleteByUser(ctx context.Context, userID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM draft_summaries WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete draft summaries for user: %w", err)
	}
	return nil
}

func (i *PostgresSummaryIndex) List(ctx context.Context, userID string) ([]models.DraftSummary, error) {
	query := `
		SELECT id, user_id, property_name, address, status, completion_percentage, last_modified
		FROM draft_summaries
		WHERE user_id = $1
		ORDER BY last_modified DESC`

	rows, err := i.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list draft summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.DraftSummary
	for rows.Next() {
		var s models.DraftSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.PropertyName, &s.Address,
			&s.Status, &s.CompletionPercentage, &s.LastModified); err != nil {
			return nil, fmt.Errorf("scan draft summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draft summaries: %w", err)
	}

	return summaries, nil
}
