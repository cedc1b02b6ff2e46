package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Barizhka/magnate-otc/internal/config"
	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/service"
	"github.com/Barizhka/magnate-otc/internal/storages"
	"github.com/Barizhka/magnate-otc/internal/storages/sqlstore"
)

// useradd создает пользователя с доступом в веб-интерфейс или обновляет существующего.
// Обычно пользователей заводит бот, утилита нужна для тестовых стендов.
func main() {
	var (
		configPath string
		user       storages.User
		password   string
		balance    string
	)

	flag.StringVar(&configPath, "c", "", "Path to config file")
	flag.Int64Var(&user.UserID, "id", 0, "user id (Telegram id)")
	flag.StringVar(&user.Username, "username", "", "display name")
	flag.StringVar(&user.WebLogin, "login", "", "web login")
	flag.StringVar(&password, "password", "", "web password")
	flag.StringVar(&user.TonWallet, "ton-wallet", "", "TON wallet address")
	flag.StringVar(&user.CardDetails, "card", "", "card details")
	flag.StringVar(&balance, "balance", "0", "balance")
	flag.Int64Var(&user.SuccessfulDeals, "successful-deals", 0, "number of successful deals")
	flag.StringVar(&user.Lang, "lang", "ru", "interface language")
	flag.BoolVar(&user.IsAdmin, "admin", false, "grant admin sections")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level)

	user.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		log.Fatalf("Invalid balance %q: %v", balance, err)
	}

	storage, err := sqlstore.New(sqlstore.ConfigFrom(cfg.Database), log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer storage.Close()

	// Токены здесь не выпускаются, события не публикуются
	otcService := service.NewOTCService(storage, nil, nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := otcService.ProvisionUser(ctx, &user, password); err != nil {
		log.Errorf("Failed to provision user: %v", err)
		storage.Close()
		os.Exit(1)
	}

	fmt.Printf("User %d can sign in as %q\n", user.UserID, user.WebLogin)
}
