package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Barizhka/magnate-otc/internal/client"
	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/storages"
)

const helpText = `Available commands:
  help                                  show this help
  status                                check API availability
  login <login>                         sign in (password is asked separately)
  deals                                 list my deals
  deal <amount> <ton|sbp|stars> <text>  create a deal
  tickets                               list my tickets
  ticket <subject> | <message>          create a support ticket
  profile                               show my profile
  admin <all-deals|all-tickets|users>   admin sections
  logout                                sign out
  exit                                  quit`

// consoleNotifier печатает уведомления в терминал
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Success(message string) { fmt.Fprintf(n.out, "✔ %s\n", message) }
func (n consoleNotifier) Error(message string)   { fmt.Fprintf(n.out, "✖ %s\n", message) }
func (n consoleNotifier) Info(message string)    { fmt.Fprintf(n.out, "ℹ %s\n", message) }

// repl цикл команд поверх сессии
func repl(session *client.Session, views *client.Views, in io.Reader, out io.Writer) {
	ctx := context.Background()
	scanner := bufio.NewScanner(in)

	if session.Restore(ctx) {
		fmt.Fprintf(out, "Welcome back, %s\n", session.User().Username)
		views.Deals(out, session.Deals())
	}

	for {
		fmt.Fprint(out, "magnate> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			fmt.Fprintln(out, helpText)
		case "status":
			if session.APIOnline(ctx) {
				fmt.Fprintln(out, "API: online")
			} else {
				fmt.Fprintln(out, "API: offline")
			}
		case "login":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: login <login>")
				continue
			}
			fmt.Fprint(out, "password: ")
			if !scanner.Scan() {
				return
			}
			if err := session.Login(ctx, args[1], scanner.Text()); err == nil {
				views.Deals(out, session.Deals())
			}
		case "deals":
			if deals, err := session.LoadDeals(ctx); err == nil {
				views.Deals(out, deals)
			} else {
				printLocalError(out, err)
			}
		case "deal":
			if len(args) < 4 {
				fmt.Fprintln(out, "Usage: deal <amount> <ton|sbp|stars> <description>")
				continue
			}
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				fmt.Fprintln(out, "✖ Сумма должна быть числом")
				continue
			}
			description := strings.Join(args[3:], " ")
			if _, err := session.CreateDeal(ctx, amount, description, storages.PaymentMethod(args[2])); err == nil {
				views.Deals(out, session.Deals())
			} else {
				printLocalError(out, err)
			}
		case "tickets":
			if tickets, err := session.LoadTickets(ctx); err == nil {
				views.Tickets(out, tickets)
			} else {
				printLocalError(out, err)
			}
		case "ticket":
			rest := strings.TrimSpace(strings.TrimPrefix(line, "ticket"))
			subject, message, _ := strings.Cut(rest, "|")
			if _, err := session.CreateTicket(ctx, strings.TrimSpace(subject), strings.TrimSpace(message)); err == nil {
				views.Tickets(out, session.Tickets())
			} else {
				printLocalError(out, err)
			}
		case "profile":
			if profile, err := session.LoadProfile(ctx); err == nil {
				views.Profile(out, profile)
			} else {
				printLocalError(out, err)
			}
		case "admin":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: admin <all-deals|all-tickets|users>")
				continue
			}
			if err := session.AdminAction(args[1]); err != nil {
				fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
			}
		case "logout":
			session.Logout()
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// printLocalError выводит ошибки, о которых сессия сама не уведомляет
func printLocalError(out io.Writer, err error) {
	switch {
	case errors.Is(err, client.ErrNotAuthenticated):
		fmt.Fprintln(out, "✖ Сначала выполните вход: login <login>")
	case errors.Is(err, client.ErrBusy):
		fmt.Fprintln(out, "✖ Дождитесь завершения предыдущего действия")
	}
}

// main разбирает флаги и запускает интерактивный клиент
func main() {
	var (
		baseURL   string
		tokenFile string
		logLevel  string
		probeTTL  time.Duration
	)

	flag.StringVar(&baseURL, "url", envOr("MAGNATE_API_URL", "http://localhost:5000"), "server base URL")
	flag.StringVar(&tokenFile, "token-file", client.DefaultTokenPath(), "path to the saved session token")
	flag.StringVar(&logLevel, "log-level", "warn", "log level")
	flag.DurationVar(&probeTTL, "health-ttl", 30*time.Second, "how long an API health check result is reused")
	flag.Parse()

	log := logger.NewWithOutput(logLevel, os.Stderr)

	api := client.NewAPIClient(baseURL, nil)
	session := client.NewSession(
		api,
		client.NewTokenStore(tokenFile),
		client.NewHealthProbe(api, 3*time.Second, probeTTL),
		consoleNotifier{out: os.Stdout},
		log,
	)

	fmt.Printf("Magnate OTC client, server: %s\n", baseURL)
	repl(session, client.NewViews(log), os.Stdin, os.Stdout)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
