// Command bootstrap creates the first administrator account directly in the
// database, for use before any staff can log in.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/repository"
	"github.com/civreg/personnel-api/pkg/config"
	"github.com/civreg/personnel-api/pkg/database"
)

func main() {
	username := flag.String("username", "admin", "username for the bootstrap account")
	email := flag.String("email", "", "email for the bootstrap account")
	password := flag.String("password", "", "password for the bootstrap account")
	firstName := flag.String("first-name", "System", "first name")
	lastName := flag.String("last-name", "Administrator", "last name")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}
	if len(*password) < 6 {
		log.Fatal("password must be at least 6 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     *username,
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: string(hash),
		FirstName:    *firstName,
		LastName:     *lastName,
		IsAdmin:      true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := repository.NewUserRepository(db)
	if err := repo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			log.Fatalf("an account with that username or email already exists")
		}
		log.Fatalf("failed to create admin account: %v", err)
	}

	log.Printf("created admin account %s (%s)", user.Username, user.Email)
}
