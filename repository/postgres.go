package repository

import (
	"context"
	"database/sql"

	"cryptotracker/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) PostgresRepository {
	return PostgresRepository{db: db}
}

func (r PostgresRepository) GetUserByUsername(
	ctx context.Context,
	username string,
) (models.User, error) {
	row := r.db.QueryRowContext(
		ctx,
		"SELECT username, email, password_hash FROM users WHERE username=$1",
		username,
	)
	var u models.User
	err := row.Scan(&u.Username, &u.Email, &u.PasswordHash)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (r PostgresRepository) CreateUser(
	ctx context.Context,
	username, email, passwordHash string,
) error {
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)",
		username, email, passwordHash,
	)
	return err
}

func (r PostgresRepository) AddWatchlistEntry(
	ctx context.Context,
	userID, symbol string,
) error {
	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO watchlist (user_id, crypto_symbol) VALUES ($1, $2) "+
			"ON CONFLICT (user_id, crypto_symbol) DO NOTHING",
		userID, symbol,
	)
	return err
}

func (r PostgresRepository) RemoveWatchlistEntry(
	ctx context.Context,
	userID, symbol string,
) error {
	_, err := r.db.ExecContext(
		ctx,
		"DELETE FROM watchlist WHERE user_id=$1 AND crypto_symbol=$2",
		userID, symbol,
	)
	return err
}

func (r PostgresRepository) GetWatchlist(
	ctx context.Context,
	userID string,
) ([]models.WatchlistEntry, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT user_id, crypto_symbol FROM watchlist WHERE user_id=$1",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WatchlistEntry
	for rows.Next() {
		var e models.WatchlistEntry
		if err := rows.Scan(&e.UserID, &e.CryptoSymbol); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
