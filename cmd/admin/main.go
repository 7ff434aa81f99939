// Command admin creates or promotes an administrator against the same
// database the server uses:
//
//	admin -e root@example.com -n "Site Admin"
//
// The password is prompted without echo. An existing user with the given
// email is promoted instead of created.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"microblog/internal/common"
	"microblog/internal/server/config"
	"microblog/internal/server/repositories/repomanager"
	"microblog/internal/server/services"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func run(ctx context.Context, cfg *config.Config, email, name string) error {

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, rm, cfg)

	if _, err := us.MakeAdmin(ctx, email); err == nil {
		fmt.Printf("Promoted existing user %s to admin\n", email)
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	if _, err := us.Register(ctx, services.RegisterParams{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: password,
	}); err != nil {
		return err
	}

	if _, err := us.MakeAdmin(ctx, email); err != nil {
		return err
	}

	fmt.Printf("Created admin %s\n", email)
	return nil
}

func main() {

	email := flag.String("e", "", "admin email")
	name := flag.String("n", "Administrator", "admin display name")
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}

	if err := run(context.Background(), cfg, *email, *name); err != nil {
		log.Fatalf("%v", err)
	}
}
