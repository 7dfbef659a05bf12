package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"cryptotracker/chart"
	"cryptotracker/feed"
	"cryptotracker/models"
	"cryptotracker/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -destination=./mocks/mock_repository.go -package=mocks cryptotracker/service Repository,MarketRepository,FeedClient

type Repository interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash string) error
	AddWatchlistEntry(ctx context.Context, userID, symbol string) error
	RemoveWatchlistEntry(ctx context.Context, userID, symbol string) error
	GetWatchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error)
}

type MarketRepository interface {
	UpsertSnapshots(ctx context.Context, snapshots []models.MarketSnapshot) error
	GetSnapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error)
	ListSnapshots(ctx context.Context) ([]models.MarketSnapshot, error)
}

type FeedClient interface {
	FetchTopAssets(ctx context.Context) ([]feed.Asset, error)
}

var (
	ErrUserExists         = errors.New("пользователь уже существует")
	ErrInvalidCredentials = errors.New("неверные учетные данные")
)

type Service struct {
	repo      Repository
	market    MarketRepository
	feed      FeedClient
	jwtSecret string
}

func NewService(
	repo Repository,
	market MarketRepository,
	feedClient FeedClient,
	jwtSecret string,
) Service {
	return Service{
		repo:      repo,
		market:    market,
		feed:      feedClient,
		jwtSecret: jwtSecret,
	}
}

func (s Service) Register(
	ctx context.Context,
	username, email, password string,
) error {
	_, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hashed, err := bcryptHash(password)
	if err != nil {
		return err
	}
	return s.repo.CreateUser(ctx, username, email, hashed)
}

func (s Service) Login(
	ctx context.Context,
	username, password string,
) (string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !bcryptCompare(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return generateJWT(user.Username, s.jwtSecret)
}

func (s Service) RefreshMarket(ctx context.Context) error {
	assets, err := s.feed.FetchTopAssets(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	snapshots := make([]models.MarketSnapshot, 0, len(assets))
	for _, a := range assets {
		snapshots = append(snapshots, snapshotFromAsset(a, now))
	}
	return s.market.UpsertSnapshots(ctx, snapshots)
}

func (s Service) ListMarket(ctx context.Context) ([]models.MarketSnapshot, error) {
	snapshots, err := s.market.ListSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].MarketCap.GreaterThan(snapshots[j].MarketCap)
	})
	return snapshots, nil
}

func (s Service) ListWatchlist(
	ctx context.Context,
	userID string,
) ([]models.ViewItem, error) {
	entries, err := s.repo.GetWatchlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	var items []models.ViewItem
	for _, e := range entries {
		snap, err := s.market.GetSnapshot(ctx, e.CryptoSymbol)
		if err != nil {
			if errors.Is(err, repository.ErrSnapshotNotFound) {
				items = append(items, models.ViewItem{
					CryptoSymbol: e.CryptoSymbol,
					Name:         strings.ToUpper(e.CryptoSymbol),
					CurrentPrice: "N/A",
				})
				continue
			}
			return nil, err
		}
		items = append(items, viewItemFromSnapshot(e.CryptoSymbol, snap))
	}
	return items, nil
}

func (s Service) GetDetail(
	ctx context.Context,
	symbol string,
) (models.MarketSnapshot, string, error) {
	snap, err := s.market.GetSnapshot(ctx, symbol)
	if err != nil {
		return models.MarketSnapshot{}, "", err
	}

	prices := make([]float64, 0, len(snap.Sparkline7d))
	for _, token := range snap.Sparkline7d {
		p, err := strconv.ParseFloat(token, 64)
		if err != nil {
			continue
		}
		prices = append(prices, p)
	}

	chartImg, err := chart.Render(prices)
	if err != nil {
		return models.MarketSnapshot{}, "", err
	}
	return snap, chartImg, nil
}

func (s Service) AddToWatchlist(
	ctx context.Context,
	userID, symbol string,
) error {
	return s.repo.AddWatchlistEntry(ctx, userID, symbol)
}

func (s Service) RemoveFromWatchlist(
	ctx context.Context,
	userID, symbol string,
) error {
	return s.repo.RemoveWatchlistEntry(ctx, userID, symbol)
}

func snapshotFromAsset(a feed.Asset, now time.Time) models.MarketSnapshot {
	price := decimal.Zero
	if a.CurrentPrice != nil {
		price = *a.CurrentPrice
	}
	change := decimal.Zero
	if a.PriceChangePercentage24h != nil {
		change = *a.PriceChangePercentage24h
	}
	marketCap := decimal.Zero
	if a.MarketCap != nil {
		marketCap = *a.MarketCap
	}

	sparkline := make([]string, 0, len(a.SparklineIn7d.Price))
	for _, p := range a.SparklineIn7d.Price {
		sparkline = append(sparkline, p.String())
	}

	return models.MarketSnapshot{
		Symbol:                   a.Symbol,
		Name:                     a.Name,
		CurrentPrice:             price,
		PriceChangePercentage24h: change,
		MarketCap:                marketCap,
		Image:                    a.Image,
		Sparkline7d:              sparkline,
		LastUpdated:              now,
	}
}

func viewItemFromSnapshot(symbol string, snap models.MarketSnapshot) models.ViewItem {
	return models.ViewItem{
		CryptoSymbol: symbol,
		Name:         snap.Name,
		CurrentPrice: snap.CurrentPrice.String(),
		Change24h:    snap.PriceChangePercentage24h.String(),
		MarketCap:    snap.MarketCap.String(),
		Image:        snap.Image,
		LastUpdated:  snap.LastUpdated.Format(time.RFC3339),
	}
}

func bcryptHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func bcryptCompare(hashed, password string) bool {
	err := bcrypt.CompareHashAndPassword(
		[]byte(hashed),
		[]byte(password),
	)
	return err == nil
}

func generateJWT(
	username string,
	secret string,
) (string, error) {
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{
			"user_id": username,
			"exp":     time.Now().Add(24 * time.Hour).Unix(),
		},
	)
	tokenStr, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return tokenStr, nil
}
