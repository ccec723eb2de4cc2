package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/model"
)

const electionColumns = `id, title, position, description, is_active, created_at`

func (q *queries) ActiveElections(ctx context.Context) ([]model.Election, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+electionColumns+`
		FROM elections
		WHERE is_active
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}

	elections, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Election])
	if err != nil {
		return nil, fmt.Errorf("failed to collect elections: %w", err)
	}
	return elections, nil
}

func (q *queries) GetElection(ctx context.Context, id int64) (model.Election, error) {
	rows, err := q.db.Query(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1`, id)
	if err != nil {
		return model.Election{}, fmt.Errorf("failed to query election: %w", err)
	}

	election, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Election])
	if err != nil {
		return model.Election{}, fmt.Errorf("table:elections:%w", err)
	}
	return election, nil
}

func (q *queries) Candidates(ctx context.Context, electionIDs []int64) ([]model.Candidate, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, election_id, name, party
		FROM election_candidates
		WHERE election_id = ANY($1)
		ORDER BY election_id, id`, electionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}

	candidates, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Candidate])
	if err != nil {
		return nil, fmt.Errorf("failed to collect candidates: %w", err)
	}
	return candidates, nil
}

func (q *queries) Tallies(ctx context.Context, electionIDs []int64) ([]model.Tally, error) {
	rows, err := q.db.Query(ctx, `
		SELECT candidate_id, COUNT(*) AS votes
		FROM election_votes
		WHERE election_id = ANY($1)
		GROUP BY candidate_id`, electionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query tallies: %w", err)
	}

	tallies, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Tally])
	if err != nil {
		return nil, fmt.Errorf("failed to collect tallies: %w", err)
	}
	return tallies, nil
}

func (q *queries) CastVote(ctx context.Context, electionID, candidateID int64, userID string) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO election_votes (election_id, candidate_id, user_id)
		VALUES ($1, $2, $3)`, electionID, candidateID, userID)
	if err != nil {
		return fmt.Errorf("failed to cast vote: %w", err)
	}
	return nil
}
