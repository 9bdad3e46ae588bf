package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/database"
	"vertx-trading/internal/redemption"
)

func main() {
	fmt.Println("========================================")
	fmt.Println(" Premium Code Administration Tool")
	fmt.Println("========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	repo := database.NewRepository(db)
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("  1. Mint premium codes")
		fmt.Println("  2. List unused codes")
		fmt.Println("  3. Check a code")
		fmt.Println("  4. Exit")
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			mintCodes(ctx, reader, repo)
		case "2":
			listUnusedCodes(ctx, repo)
		case "3":
			checkCode(ctx, reader, repo)
		case "4":
			fmt.Println("Goodbye!")
			os.Exit(0)
		default:
			fmt.Println("Invalid option")
		}
	}
}

func mintCodes(ctx context.Context, reader *bufio.Reader, repo *database.Repository) {
	fmt.Print("\nHow many codes to mint? ")

	countInput, _ := reader.ReadString('\n')
	count, err := strconv.Atoi(strings.TrimSpace(countInput))
	if err != nil || count < 1 || count > 1000 {
		fmt.Println("Invalid count (1-1000)")
		return
	}

	fmt.Println("\n========================================")
	minted := 0
	for minted < count {
		value, err := redemption.GenerateCode()
		if err != nil {
			fmt.Printf("Failed to generate code: %v\n", err)
			return
		}

		// Skip the rare collision with an existing code
		existing, err := repo.GetCodeByValue(ctx, value)
		if err != nil {
			fmt.Printf("Failed to check code: %v\n", err)
			return
		}
		if existing != nil {
			continue
		}

		if _, err := repo.CreateCode(ctx, value); err != nil {
			fmt.Printf("Failed to store code: %v\n", err)
			return
		}

		fmt.Printf("  %s\n", value)
		minted++
	}
	fmt.Println("========================================")
	fmt.Printf("Minted %d codes (%d premium days each)\n", minted, redemption.GrantDays)
}

func listUnusedCodes(ctx context.Context, repo *database.Repository) {
	codes, err := repo.ListUnusedCodes(ctx, 100)
	if err != nil {
		fmt.Printf("Failed to list codes: %v\n", err)
		return
	}

	if len(codes) == 0 {
		fmt.Println("\nNo unused codes")
		return
	}

	fmt.Printf("\nUnused codes (%d):\n", len(codes))
	for _, code := range codes {
		fmt.Printf("  %s  (created %s)\n", code.Code, code.CreatedAt.Format("2006-01-02"))
	}
}

func checkCode(ctx context.Context, reader *bufio.Reader, repo *database.Repository) {
	fmt.Print("\nEnter code: ")
	input, _ := reader.ReadString('\n')
	value := strings.ToUpper(strings.TrimSpace(input))

	if err := redemption.ValidateFormat(value); err != nil {
		fmt.Println("Malformed code")
		return
	}

	code, err := repo.GetCodeByValue(ctx, value)
	if err != nil {
		fmt.Printf("Failed to look up code: %v\n", err)
		return
	}
	if code == nil {
		fmt.Println("Code not found")
		return
	}

	fmt.Println("\n========================================")
	fmt.Printf("  Code:    %s\n", code.Code)
	fmt.Printf("  Created: %s\n", code.CreatedAt.Format(time.RFC3339))
	if code.IsUsed {
		usedBy := ""
		if code.UsedBy != nil {
			usedBy = *code.UsedBy
		}
		usedAt := ""
		if code.UsedAt != nil {
			usedAt = code.UsedAt.Format(time.RFC3339)
		}
		fmt.Printf("  Status:  USED by %s at %s\n", usedBy, usedAt)
	} else {
		fmt.Println("  Status:  UNUSED")
	}
	fmt.Println("========================================")
}
