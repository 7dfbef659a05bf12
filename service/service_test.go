package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"cryptotracker/feed"
	"cryptotracker/models"
	"cryptotracker/repository"
	"cryptotracker/service"

	"cryptotracker/service/mocks"

	"github.com/golang-jwt/jwt/v4"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestService_Register(t *testing.T) {
	type fields struct {
		prepareRepository func(*mocks.MockRepository)
	}
	type args struct {
		username string
		email    string
		password string
	}
	tests := []struct {
		name    string
		fields  fields
		args    args
		wantErr error
	}{
		{
			name: "Регистрация нового пользователя",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetUserByUsername(gomock.Any(), "alice").
						Return(models.User{}, sql.ErrNoRows)
					mr.EXPECT().
						CreateUser(gomock.Any(), "alice", "alice@example.com", gomock.Any()).
						DoAndReturn(func(_ context.Context, _, _, hash string) error {
							return bcrypt.CompareHashAndPassword([]byte(hash), []byte("pass"))
						})
				},
			},
			args: args{
				username: "alice",
				email:    "alice@example.com",
				password: "pass",
			},
			wantErr: nil,
		},
		{
			name: "Повторная регистрация не перезаписывает запись",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetUserByUsername(gomock.Any(), "alice").
						Return(models.User{Username: "alice"}, nil)
				},
			},
			args: args{
				username: "alice",
				email:    "other@example.com",
				password: "otherpass",
			},
			wantErr: service.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ctx := context.Background()
			mockRepo := mocks.NewMockRepository(ctrl)
			tt.fields.prepareRepository(mockRepo)

			svc := service.NewService(
				mockRepo,
				mocks.NewMockMarketRepository(ctrl),
				mocks.NewMockFeedClient(ctrl),
				"secret",
			)
			err := svc.Register(ctx, tt.args.username, tt.args.email, tt.args.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestService_Login(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.DefaultCost)
	require.NoError(t, err)

	type fields struct {
		prepareRepository func(*mocks.MockRepository)
	}
	type args struct {
		username string
		password string
	}
	tests := []struct {
		name    string
		fields  fields
		args    args
		wantErr error
	}{
		{
			name: "Успешный вход с верным паролем",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetUserByUsername(gomock.Any(), "alice").
						Return(models.User{
							Username:     "alice",
							Email:        "alice@example.com",
							PasswordHash: string(hashed),
						}, nil)
				},
			},
			args: args{
				username: "alice",
				password: "pass",
			},
			wantErr: nil,
		},
		{
			name: "Неверный пароль",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetUserByUsername(gomock.Any(), "alice").
						Return(models.User{
							Username:     "alice",
							PasswordHash: string(hashed),
						}, nil)
				},
			},
			args: args{
				username: "alice",
				password: "wrongpass",
			},
			wantErr: service.ErrInvalidCredentials,
		},
		{
			name: "Несуществующий пользователь",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetUserByUsername(gomock.Any(), "ghost").
						Return(models.User{}, sql.ErrNoRows)
				},
			},
			args: args{
				username: "ghost",
				password: "pass",
			},
			wantErr: service.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ctx := context.Background()
			mockRepo := mocks.NewMockRepository(ctrl)
			tt.fields.prepareRepository(mockRepo)

			svc := service.NewService(
				mockRepo,
				mocks.NewMockMarketRepository(ctrl),
				mocks.NewMockFeedClient(ctrl),
				"secret",
			)
			token, err := svc.Login(ctx, tt.args.username, tt.args.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, token)

			parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
				return []byte("secret"), nil
			})
			require.NoError(t, err)
			claims, ok := parsed.Claims.(jwt.MapClaims)
			require.True(t, ok)
			require.Equal(t, tt.args.username, claims["user_id"])
		})
	}
}

func TestService_ListMarket(t *testing.T) {
	snap := func(symbol string, cap int64) models.MarketSnapshot {
		return models.MarketSnapshot{
			Symbol:    symbol,
			MarketCap: decimal.NewFromInt(cap),
		}
	}

	tests := []struct {
		name       string
		stored     []models.MarketSnapshot
		wantOrder  []string
		wantErr    bool
		listErr    error
	}{
		{
			name:      "Сортировка по капитализации по убыванию",
			stored:    []models.MarketSnapshot{snap("btc", 900), snap("eth", 1200)},
			wantOrder: []string{"eth", "btc"},
		},
		{
			name: "Равная капитализация сохраняет порядок чтения",
			stored: []models.MarketSnapshot{
				snap("aaa", 500),
				snap("bbb", 500),
				snap("ccc", 700),
			},
			wantOrder: []string{"ccc", "aaa", "bbb"},
		},
		{
			name: "Нулевая капитализация уходит в конец",
			stored: []models.MarketSnapshot{
				snap("zero", 0),
				snap("btc", 900),
			},
			wantOrder: []string{"btc", "zero"},
		},
		{
			name:    "Ошибка чтения кэша прерывает операцию",
			listErr: errors.New("redis недоступен"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ctx := context.Background()
			mockMarket := mocks.NewMockMarketRepository(ctrl)
			if tt.listErr != nil {
				mockMarket.EXPECT().ListSnapshots(gomock.Any()).Return(nil, tt.listErr)
			} else {
				mockMarket.EXPECT().ListSnapshots(gomock.Any()).Return(tt.stored, nil)
			}

			svc := service.NewService(
				mocks.NewMockRepository(ctrl),
				mockMarket,
				mocks.NewMockFeedClient(ctrl),
				"secret",
			)
			got, err := svc.ListMarket(ctx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			var order []string
			for _, s := range got {
				order = append(order, s.Symbol)
			}
			require.Equal(t, tt.wantOrder, order)
		})
	}
}

func TestService_ListWatchlist(t *testing.T) {
	btcSnap := models.MarketSnapshot{
		Symbol:       "btc",
		Name:         "Bitcoin",
		CurrentPrice: decimal.NewFromInt(60000),
		MarketCap:    decimal.NewFromInt(900),
	}

	type fields struct {
		prepareRepository func(*mocks.MockRepository)
		prepareMarket     func(*mocks.MockMarketRepository)
	}
	tests := []struct {
		name    string
		fields  fields
		userID  string
		want    []models.ViewItem
		wantErr bool
	}{
		{
			name: "Плейсхолдер для символа без снапшота",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetWatchlist(gomock.Any(), "alice").
						Return([]models.WatchlistEntry{
							{UserID: "alice", CryptoSymbol: "btc"},
							{UserID: "alice", CryptoSymbol: "xrp"},
						}, nil)
				},
				prepareMarket: func(mm *mocks.MockMarketRepository) {
					mm.EXPECT().
						GetSnapshot(gomock.Any(), "btc").
						Return(btcSnap, nil)
					mm.EXPECT().
						GetSnapshot(gomock.Any(), "xrp").
						Return(models.MarketSnapshot{}, repository.ErrSnapshotNotFound)
				},
			},
			userID: "alice",
			want: []models.ViewItem{
				{
					CryptoSymbol: "btc",
					Name:         "Bitcoin",
					CurrentPrice: "60000",
					Change24h:    "0",
					MarketCap:    "900",
					LastUpdated:  "0001-01-01T00:00:00Z",
				},
				{
					CryptoSymbol: "xrp",
					Name:         "XRP",
					CurrentPrice: "N/A",
				},
			},
		},
		{
			name: "Пустой список избранного",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetWatchlist(gomock.Any(), "bob").
						Return(nil, nil)
				},
				prepareMarket: func(mm *mocks.MockMarketRepository) {},
			},
			userID: "bob",
			want:   nil,
		},
		{
			name: "Ошибка чтения кэша прерывает операцию",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetWatchlist(gomock.Any(), "alice").
						Return([]models.WatchlistEntry{
							{UserID: "alice", CryptoSymbol: "btc"},
						}, nil)
				},
				prepareMarket: func(mm *mocks.MockMarketRepository) {
					mm.EXPECT().
						GetSnapshot(gomock.Any(), "btc").
						Return(models.MarketSnapshot{}, errors.New("redis недоступен"))
				},
			},
			userID:  "alice",
			wantErr: true,
		},
		{
			name: "Ошибка чтения списка прерывает операцию",
			fields: fields{
				prepareRepository: func(mr *mocks.MockRepository) {
					mr.EXPECT().
						GetWatchlist(gomock.Any(), "alice").
						Return(nil, errors.New("БД недоступна"))
				},
				prepareMarket: func(mm *mocks.MockMarketRepository) {},
			},
			userID:  "alice",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ctx := context.Background()
			mockRepo := mocks.NewMockRepository(ctrl)
			mockMarket := mocks.NewMockMarketRepository(ctrl)
			tt.fields.prepareRepository(mockRepo)
			tt.fields.prepareMarket(mockMarket)

			svc := service.NewService(
				mockRepo,
				mockMarket,
				mocks.NewMockFeedClient(ctrl),
				"secret",
			)
			got, err := svc.ListWatchlist(ctx, tt.userID)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestService_RefreshMarket(t *testing.T) {
	price := decimal.NewFromInt(60000)
	mcap := decimal.NewFromInt(900)
	spark1 := decimal.RequireFromString("59000.5")
	spark2 := decimal.RequireFromString("60000.25")

	assets := []feed.Asset{
		{
			Symbol:        "btc",
			Name:          "Bitcoin",
			CurrentPrice:  &price,
			MarketCap:     &mcap,
			Image:         "https://example.com/btc.png",
			SparklineIn7d: feed.Sparkline{Price: []decimal.Decimal{spark1, spark2}},
		},
	}

	t.Run("Конвертация актива: отсутствующие поля обнуляются", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockFeed := mocks.NewMockFeedClient(ctrl)
		mockFeed.EXPECT().FetchTopAssets(gomock.Any()).Return(assets, nil)

		var captured []models.MarketSnapshot
		mockMarket := mocks.NewMockMarketRepository(ctrl)
		mockMarket.EXPECT().
			UpsertSnapshots(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, snaps []models.MarketSnapshot) error {
				captured = snaps
				return nil
			})

		svc := service.NewService(
			mocks.NewMockRepository(ctrl),
			mockMarket,
			mockFeed,
			"secret",
		)
		require.NoError(t, svc.RefreshMarket(context.Background()))

		require.Len(t, captured, 1)
		snap := captured[0]
		require.Equal(t, "btc", snap.Symbol)
		require.Equal(t, "Bitcoin", snap.Name)
		require.True(t, snap.CurrentPrice.Equal(price))
		require.True(t, snap.PriceChangePercentage24h.IsZero())
		require.True(t, snap.MarketCap.Equal(mcap))
		require.Equal(t, []string{"59000.5", "60000.25"}, snap.Sparkline7d)
		require.False(t, snap.LastUpdated.IsZero())
	})

	t.Run("Повторное обновление с тем же ответом сходится", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockFeed := mocks.NewMockFeedClient(ctrl)
		mockFeed.EXPECT().FetchTopAssets(gomock.Any()).Return(assets, nil).Times(2)

		var runs [][]models.MarketSnapshot
		mockMarket := mocks.NewMockMarketRepository(ctrl)
		mockMarket.EXPECT().
			UpsertSnapshots(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, snaps []models.MarketSnapshot) error {
				runs = append(runs, snaps)
				return nil
			}).
			Times(2)

		svc := service.NewService(
			mocks.NewMockRepository(ctrl),
			mockMarket,
			mockFeed,
			"secret",
		)
		require.NoError(t, svc.RefreshMarket(context.Background()))
		require.NoError(t, svc.RefreshMarket(context.Background()))

		require.Len(t, runs, 2)
		first, second := runs[0], runs[1]
		require.Len(t, second, len(first))
		for i := range first {
			first[i].LastUpdated = second[i].LastUpdated
		}
		require.Equal(t, first, second)
	})

	t.Run("Ошибка фида возвращается вызывающему", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockFeed := mocks.NewMockFeedClient(ctrl)
		mockFeed.EXPECT().
			FetchTopAssets(gomock.Any()).
			Return(nil, errors.New("фид недоступен"))

		svc := service.NewService(
			mocks.NewMockRepository(ctrl),
			mocks.NewMockMarketRepository(ctrl),
			mockFeed,
			"secret",
		)
		require.Error(t, svc.RefreshMarket(context.Background()))
	})
}

func TestService_GetDetail(t *testing.T) {
	t.Run("Снапшот с графиком", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockMarket := mocks.NewMockMarketRepository(ctrl)
		mockMarket.EXPECT().
			GetSnapshot(gomock.Any(), "btc").
			Return(models.MarketSnapshot{
				Symbol:      "btc",
				Name:        "Bitcoin",
				Sparkline7d: []string{"59000.5", "60000.25", "59500"},
			}, nil)

		svc := service.NewService(
			mocks.NewMockRepository(ctrl),
			mockMarket,
			mocks.NewMockFeedClient(ctrl),
			"secret",
		)
		snap, chartImg, err := svc.GetDetail(context.Background(), "btc")
		require.NoError(t, err)
		require.Equal(t, "btc", snap.Symbol)
		require.NotEmpty(t, chartImg)
	})

	t.Run("Символ отсутствует в кэше", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockMarket := mocks.NewMockMarketRepository(ctrl)
		mockMarket.EXPECT().
			GetSnapshot(gomock.Any(), "doge").
			Return(models.MarketSnapshot{}, repository.ErrSnapshotNotFound)

		svc := service.NewService(
			mocks.NewMockRepository(ctrl),
			mockMarket,
			mocks.NewMockFeedClient(ctrl),
			"secret",
		)
		_, _, err := svc.GetDetail(context.Background(), "doge")
		require.ErrorIs(t, err, repository.ErrSnapshotNotFound)
	})
}
