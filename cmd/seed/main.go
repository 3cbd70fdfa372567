// Command seed provisions a demo patient, doctor and shared
// conversation for local development, and prints access tokens for
// both so a WebSocket client can connect immediately.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository/postgres"
	"telecare-backend/pkg/config"
	"telecare-backend/pkg/database"
	"telecare-backend/pkg/jwt"
	"telecare-backend/pkg/logger"
	"telecare-backend/pkg/password"
)

type seedUser struct {
	username    string
	firstName   string
	lastName    string
	email       string
	accountType domain.AccountType
	password    string
}

var seedUsers = []seedUser{
	{"demo-patient", "Pat", "Jensen", "patient@example.com", domain.AccountTypePatient, "patient-pass-1"},
	{"demo-doctor", "Dana", "Osei", "doctor@example.com", domain.AccountTypeDoctor, "doctor-pass-1"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitDefault()
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db.Pool)
	conversationRepo := postgres.NewConversationRepository(db.Pool)
	jwtManager := jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	ids := make([]int64, 0, len(seedUsers))
	for _, su := range seedUsers {
		hash, err := password.Hash(su.password)
		if err != nil {
			logger.Fatal("failed to hash password", zap.String("username", su.username), zap.Error(err))
		}

		userID, err := userRepo.Create(ctx, &domain.User{
			Username:    su.username,
			FirstName:   su.firstName,
			LastName:    su.lastName,
			Email:       su.email,
			AccountType: su.accountType,
		}, hash)
		if err != nil {
			logger.Fatal("failed to create user", zap.String("username", su.username), zap.Error(err))
		}

		if err := userRepo.CreateProfile(ctx, userID, su.accountType, nil); err != nil {
			logger.Fatal("failed to create profile", zap.String("username", su.username), zap.Error(err))
		}

		ids = append(ids, userID)
		logger.Info("seeded user",
			zap.Int64("id", userID),
			zap.String("username", su.username),
			zap.String("account_type", string(su.accountType)))
	}

	conversation := &domain.Conversation{PatientID: ids[0], DoctorID: ids[1]}
	if err := conversationRepo.Create(ctx, conversation); err != nil {
		logger.Fatal("failed to create conversation", zap.Error(err))
	}
	logger.Info("seeded conversation", zap.Int64("id", conversation.ID))

	for i, su := range seedUsers {
		token, err := jwtManager.GenerateAccessToken(ids[i], su.username, string(su.accountType))
		if err != nil {
			logger.Fatal("failed to issue token", zap.String("username", su.username), zap.Error(err))
		}
		fmt.Printf("%s token: %s\n", su.username, token)
	}

	fmt.Printf("websocket: /conversation/%d/?token=<token>\n", conversation.ID)
}
