package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"cryptotracker/config"
	"cryptotracker/feed"
	"cryptotracker/handlers"
	"cryptotracker/repository"
	"cryptotracker/service"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfigOrPanic()

	db := config.InitDB(ctx, cfg)
	defer func() { _ = db.Close() }()

	rdb := config.InitRedis(ctx, cfg)
	defer func() { _ = rdb.Close() }()

	repoImpl := repository.NewPostgresRepository(db)
	marketImpl := repository.NewMarketRepository(rdb)
	feedClient := feed.NewClient(cfg.FeedBaseURL, cfg.FeedTopN)

	svc := service.NewService(repoImpl, marketImpl, feedClient, cfg.JWTSecret)

	h := handlers.NewHandler(svc, cfg.JWTSecret)

	r := mux.NewRouter()
	r.HandleFunc("/register", h.RegisterHandler).Methods("POST")
	r.HandleFunc("/login", h.LoginPageHandler).Methods("GET")
	r.HandleFunc("/login", h.LoginHandler).Methods("POST")
	r.HandleFunc("/logout", h.LogoutHandler).Methods("GET")
	r.HandleFunc("/trading", h.SessionMiddleware(h.TradingHandler)).Methods("GET")
	r.HandleFunc("/crypto/{symbol}", h.SessionMiddleware(h.CryptoDetailHandler)).Methods("GET")
	r.HandleFunc("/watchlist", h.SessionMiddleware(h.WatchlistHandler)).Methods("GET")
	r.HandleFunc("/add_to_watchlist", h.SessionMiddleware(h.AddToWatchlistHandler)).Methods("POST")
	r.HandleFunc("/remove_from_watchlist", h.SessionMiddleware(h.RemoveFromWatchlistHandler)).Methods("POST")

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("Добро пожаловать в Crypto Tracker")); err != nil {
			log.Printf("Ошибка при записи ответа: %v", err)
		}
	}).Methods("GET")

	srv := http.Server{
		Handler:      r,
		Addr:         ":" + cfg.ServerPort,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	log.Printf("Сервер запущен на порту %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil {
		_ = db.Close()
		log.Fatal(err)
	}
}
