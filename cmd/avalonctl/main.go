/*Operator CLI for the avalonfi database.*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/avalon-py/new-avalonfi/internal/stats"
	"github.com/avalon-py/new-avalonfi/internal/storage"
	"github.com/avalon-py/new-avalonfi/internal/token"
)

type globals struct {
	DB string `help:"Path to the SQLite database." default:"./data/avalonfi.db"`
}

var cli struct {
	Globals globals `embed:""`

	Export  exportCmd  `cmd:"" help:"Export a user's transactions as JSON."`
	Summary summaryCmd `cmd:"" help:"Print a spending summary for a user."`
	Token   tokenCmd   `cmd:"" help:"Issue a dashboard session token."`
}

type exportCmd struct {
	User int64  `required:"" help:"Telegram user ID."`
	Out  string `default:"-" help:"Output file, or - for stdout."`
}

func (c *exportCmd) Run(g *globals) error {
	repo, err := storage.NewSQLiteRepository(g.DB)
	if err != nil {
		return err
	}
	defer repo.Close()

	txs, err := repo.ListByUser(context.Background(), c.User)
	if err != nil {
		return err
	}

	out := os.Stdout
	if c.Out != "-" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(txs)
}

type summaryCmd struct {
	User int64 `required:"" help:"Telegram user ID."`
}

func (c *summaryCmd) Run(g *globals) error {
	repo, err := storage.NewSQLiteRepository(g.DB)
	if err != nil {
		return err
	}
	defer repo.Close()

	txs, err := repo.ListByUser(context.Background(), c.User)
	if err != nil {
		return err
	}

	s := stats.Summarize(txs)
	fmt.Printf("Transactions:      %d\n", len(txs))
	fmt.Printf("Total income:      %d\n", s.TotalIncome.Cents)
	fmt.Printf("Total expense:     %d\n", s.TotalExpense.Cents)
	fmt.Printf("Net balance:       %d\n", s.NetBalance.Cents)
	fmt.Printf("Avg daily expense: %d (over %d days)\n", s.AvgDailyExpense.Cents, s.ObservedDaySpan)
	for i, cat := range s.TopCategories {
		fmt.Printf("Top category %d:    %s (%d)\n", i+1, cat.Name, cat.Value.Cents)
	}
	return nil
}

type tokenCmd struct {
	User     int64         `required:"" help:"Telegram user ID."`
	Username string        `default:"" help:"Username embedded in the token."`
	TTL      time.Duration `default:"24h" help:"Token lifetime."`
}

func (c *tokenCmd) Run(_ *globals) error {
	secret := os.Getenv("WEB_SHARED_SECRET")
	if secret == "" {
		return fmt.Errorf("WEB_SHARED_SECRET is not set")
	}

	signer := token.NewSigner(secret, c.TTL)
	tok, err := signer.Issue(c.User, c.Username)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func main() {
	_ = godotenv.Load()
	ctx := kong.Parse(&cli)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
