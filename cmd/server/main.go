package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-shell/auth"
	"chat-shell/internal"
	"chat-shell/moderation"
	"chat-shell/repositories"
	"chat-shell/search"
	"chat-shell/services"
	"chat-shell/sshd"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exiting.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB) - optional; without it the server runs with the
	// open auth policy and no blacklist.
	var db *badger.DB
	if config.BadgerFilepath != "" {
		db, err = badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
	}

	// 3. Moderation
	var moderator *moderation.Moderator
	if db != nil {
		words, err := moderation.LoadBlacklist(db)
		if err != nil {
			return exitRuntime, fmt.Errorf("blacklist loading failed: %w", err)
		}
		moderator, err = moderation.New(words, replacement, logger)
		if err != nil {
			return exitRuntime, fmt.Errorf("moderator build failed: %w", err)
		}
	}

	// 4. Credential policy
	var policy auth.Policy = auth.OpenPolicy{}
	if config.AuthMode == internal.AuthModePassword {
		policy = auth.NewPasswordPolicy(repositories.NewAccountStore(db))
	}

	// 5. Chat core
	index, err := search.NewTranscriptIndex()
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing transcript index...")
		_ = index.Close()
	}()

	users := repositories.NewUserRegistry()
	rooms := repositories.NewRoomRegistry()
	chatService := services.NewChatService(rooms, moderator, index, logger)

	// 6. SSH acceptor
	hostKey, err := sshd.LoadOrGenerateHostKey(config.HostKeyPath)
	if err != nil {
		return exitRuntime, err
	}

	server := sshd.NewServer(policy, hostKey, users, chatService, logger)
	if err := server.Listen(config.Addr()); err != nil {
		return exitRuntime, fmt.Errorf("listen failed: %w", err)
	}
	logger.Info("Starting ssh chat server", "addr", server.Addr().String(), "auth", config.AuthMode)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down...")
		_ = server.Close()
	}()

	if err := server.Serve(ctx); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
