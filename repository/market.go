package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"cryptotracker/models"

	"github.com/redis/go-redis/v9"
)

const marketHashKey = "market:prices"

var ErrSnapshotNotFound = errors.New("снапшот не найден в кэше")

type MarketRepository struct {
	rdb *redis.Client
}

func NewMarketRepository(rdb *redis.Client) MarketRepository {
	return MarketRepository{rdb: rdb}
}

func (r MarketRepository) UpsertSnapshots(
	ctx context.Context,
	snapshots []models.MarketSnapshot,
) error {
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, snap := range snapshots {
			raw, err := json.Marshal(snap)
			if err != nil {
				log.Printf("Ошибка сериализации снапшота %s: %v", snap.Symbol, err)
				continue
			}
			pipe.HSet(ctx, marketHashKey, snap.Symbol, raw)
		}
		return nil
	})
	return err
}

func (r MarketRepository) GetSnapshot(
	ctx context.Context,
	symbol string,
) (models.MarketSnapshot, error) {
	raw, err := r.rdb.HGet(ctx, marketHashKey, symbol).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.MarketSnapshot{}, ErrSnapshotNotFound
		}
		return models.MarketSnapshot{}, err
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return models.MarketSnapshot{}, err
	}
	return snap, nil
}

func (r MarketRepository) ListSnapshots(
	ctx context.Context,
) ([]models.MarketSnapshot, error) {
	raws, err := r.rdb.HGetAll(ctx, marketHashKey).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []models.MarketSnapshot
	for symbol, raw := range raws {
		var snap models.MarketSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			log.Printf("Ошибка десериализации снапшота %s: %v", symbol, err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}
