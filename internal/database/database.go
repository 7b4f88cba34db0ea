// internal/database/database.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/breach/engine"
)

// DB is the shared connection pool. Nil when Postgres is not configured;
// callers must check before persisting.
var DB *pgxpool.Pool

// Connect opens the pool and verifies connectivity. An empty DSN leaves DB
// nil and persistence disabled.
func Connect(ctx context.Context, dsn string) error {
	if dsn == "" {
		logrus.Info("DATABASE_URL not set; match persistence disabled")
		return nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping: %w", err)
	}
	DB = pool
	logrus.Info("connected to postgres")
	return nil
}

// EnsureSchema creates the match tables if they do not exist.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return nil
	}
	_, err := DB.Exec(ctx, `
CREATE TABLE IF NOT EXISTS matches (
    id           uuid PRIMARY KEY,
    player_a     uuid NOT NULL,
    player_b     uuid NOT NULL,
    seed         bigint NOT NULL,
    result       text NOT NULL DEFAULT 'in_progress',
    winner       uuid,
    rounds       int  NOT NULL DEFAULT 0,
    created_at   timestamptz NOT NULL DEFAULT now(),
    completed_at timestamptz
);
CREATE TABLE IF NOT EXISTS match_rounds (
    match_id        uuid NOT NULL REFERENCES matches(id),
    round           int  NOT NULL,
    card_a          text NOT NULL,
    card_b          text NOT NULL,
    fizzled_a       bool NOT NULL,
    fizzled_b       bool NOT NULL,
    damage_a        int  NOT NULL,
    damage_b        int  NOT NULL,
    blocked_a       bool NOT NULL,
    blocked_b       bool NOT NULL,
    distance        int  NOT NULL,
    hp_a            int  NOT NULL,
    hp_b            int  NOT NULL,
    priority_winner int  NOT NULL,
    PRIMARY KEY (match_id, round)
);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertMatch records a new duel at start time.
func InsertMatch(ctx context.Context, matchID, playerA, playerB uuid.UUID, seed uint64) error {
	if DB == nil {
		return nil
	}
	_, err := DB.Exec(ctx,
		`INSERT INTO matches (id, player_a, player_b, seed) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		matchID, playerA, playerB, int64(seed))
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// StoreMatchRound persists one resolved round's audit record.
func StoreMatchRound(ctx context.Context, matchID uuid.UUID, rec engine.RoundRecord) error {
	if DB == nil {
		return nil
	}
	_, err := DB.Exec(ctx,
		`INSERT INTO match_rounds (
			match_id, round, card_a, card_b, fizzled_a, fizzled_b,
			damage_a, damage_b, blocked_a, blocked_b,
			distance, hp_a, hp_b, priority_winner
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (match_id, round) DO NOTHING`,
		matchID, rec.Round,
		rec.Cards[0].String(), rec.Cards[1].String(),
		rec.Fizzled[0], rec.Fizzled[1],
		rec.Damage[0], rec.Damage[1],
		rec.Blocked[0], rec.Blocked[1],
		rec.Distance, rec.HP[0], rec.HP[1], rec.PriorityWinner)
	if err != nil {
		return fmt.Errorf("insert match round: %w", err)
	}
	return nil
}

// FinalizeMatch records the duel outcome.
func FinalizeMatch(ctx context.Context, matchID uuid.UUID, result string, winner uuid.UUID, rounds int) error {
	if DB == nil {
		return nil
	}
	var winnerArg interface{}
	if winner != uuid.Nil {
		winnerArg = winner
	}
	_, err := DB.Exec(ctx,
		`UPDATE matches SET result = $2, winner = $3, rounds = $4, completed_at = now()
		 WHERE id = $1`,
		matchID, result, winnerArg, rounds)
	if err != nil {
		return fmt.Errorf("finalize match: %w", err)
	}
	return nil
}
