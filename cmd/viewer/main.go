package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"chat-shell/internal"
	"chat-shell/moderation"
	"chat-shell/repositories"
	"chat-shell/services"
)

// viewer inspects and manages the operator-owned Badger rows: password
// accounts and the moderation blacklist. Read paths open the database in
// read-only mode so it works while the server holds the lock.
func main() {
	register := flag.String("register", "", "create an account, formatted username:password")
	blacklist := flag.String("blacklist", "", "add a word to the moderation blacklist")
	flag.Parse()

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.BadgerFilepath == "" {
		log.Fatal("BADGER_FILEPATH is required")
	}

	if *register != "" || *blacklist != "" {
		if err := mutate(config.BadgerFilepath, *register, *blacklist); err != nil {
			log.Fatalf("Update failed: %v", err)
		}
		return
	}

	if err := view(config.BadgerFilepath); err != nil {
		log.Fatalf("View failed: %v", err)
	}
}

func mutate(path, register, blacklistWord string) error {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if register != "" {
		username, password, ok := strings.Cut(register, ":")
		if !ok {
			return fmt.Errorf("-register expects username:password")
		}
		accounts := services.NewAccountService(repositories.NewAccountStore(db))
		if err := accounts.Register(username, password); err != nil {
			return err
		}
		fmt.Printf("Account %q created\n", username)
	}

	if blacklistWord != "" {
		if err := moderation.AddBlacklistWord(db, blacklistWord); err != nil {
			return err
		}
		fmt.Printf("Blacklisted %q\n", blacklistWord)
	}
	return nil
}

func view(path string) error {
	// BypassLockGuard allows opening while the server process holds the lock.
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	usernames, err := repositories.NewAccountStore(db).Usernames()
	if err != nil {
		return err
	}
	for _, name := range usernames {
		table.Append([]string{"ACCOUNT", name})
	}

	words, err := moderation.LoadBlacklist(db)
	if err != nil {
		return err
	}
	for _, word := range words {
		table.Append([]string{"BLACKLIST", word})
	}

	table.Render()
	return nil
}
