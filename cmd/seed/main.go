package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/db"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/services"
)

var defaultExpertises = []string{
	"Vannskade",
	"Fuktskade",
	"Brannskade",
	"Muggsopp",
	"Elektrisk",
	"Rørlegger",
	"Snekker",
	"Maler",
}

// UserData represents one entry of the optional users file
type UserData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// JSONData represents the structure of the users file
type JSONData struct {
	Users []UserData `json:"users"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Initialize()

	database, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := database.WaitReady(ctx); err != nil {
		log.Fatalf("Database not reachable: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database.DB); err != nil {
			log.Fatalf("Auto-migration failed: %v", err)
		}
	}

	svc := services.New(services.Deps{
		DB:     database.DB,
		Tokens: auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.ElevatedTTL).WithSessionTTL(cfg.JWT.SessionTTL),
	})

	if _, err := svc.Settings.Get(ctx); err != nil {
		log.Fatalf("Failed to seed platform settings: %v", err)
	}
	log.Println("✅ Platform settings ready")

	if err := svc.Expertises.EnsureDefaults(ctx, defaultExpertises); err != nil {
		log.Fatalf("Failed to seed expertises: %v", err)
	}
	log.Printf("✅ %d default expertises ready", len(defaultExpertises))

	if email := os.Getenv("SEED_ADMIN_EMAIL"); email != "" {
		seedUser(database.DB, UserData{
			Email:     email,
			Password:  os.Getenv("SEED_ADMIN_PASSWORD"),
			FirstName: "Admin",
			LastName:  "Utleieskade",
			Role:      string(models.RoleAdmin),
		})
	} else {
		log.Println("SEED_ADMIN_EMAIL not set, skipping admin account")
	}

	if path := os.Getenv("SEED_USERS_FILE"); path != "" {
		if err := seedUsers(database.DB, path); err != nil {
			log.Printf("Error seeding users: %v", err)
		}
	}

	log.Println("✅ Database seeding completed successfully!")
}

func seedUsers(gdb *gorm.DB, path string) error {
	usersData, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jsonData JSONData
	if err := json.Unmarshal(usersData, &jsonData); err != nil {
		return err
	}
	for _, userData := range jsonData.Users {
		seedUser(gdb, userData)
	}
	return nil
}

func seedUser(gdb *gorm.DB, userData UserData) {
	role := models.UserRole(userData.Role)
	if !role.Valid() {
		log.Printf("Unknown role %s for user %s, skipping", userData.Role, userData.Email)
		return
	}
	if len(userData.Password) < 8 {
		log.Printf("Password for %s must be at least 8 characters, skipping", userData.Email)
		return
	}

	var existingUser models.User
	err := gdb.Where("email = ?", userData.Email).First(&existingUser).Error
	if err == nil {
		log.Printf("⚠️  User already exists: %s", userData.Email)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error looking up user %s: %v", userData.Email, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(userData.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", userData.Email, err)
		return
	}
	user := models.User{
		Email:      userData.Email,
		Password:   string(hashedPassword),
		FirstName:  userData.FirstName,
		LastName:   userData.LastName,
		Role:       role,
		Status:     models.UserStatusActive,
		IsVerified: true,
	}
	if err := gdb.Create(&user).Error; err != nil {
		log.Printf("Error creating user %s: %v", user.Email, err)
		return
	}
	log.Printf("✅ Created user: %s (%s)", user.Email, user.Role)
}
