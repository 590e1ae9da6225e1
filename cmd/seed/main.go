// Command seed bootstraps a fresh database: the organization, an admin
// account, a demo user with client grants, and a spread of demo tasks.
// Safe to re-run; existing emails are left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"timetrack/internal/config"
	"timetrack/internal/db"
	"timetrack/internal/model"
	"timetrack/internal/repository"
	"timetrack/pkg/logger"
)

const (
	organizationName = "CreativeTrust"
	adminEmail       = "admin@example.com"
	adminPassword    = "admin123"
	demoEmail        = "demo@example.com"
	demoPassword     = "demo123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	defer func() { _ = db.Close(gormDB) }()

	if err := gormDB.AutoMigrate(
		&model.Organization{},
		&model.User{},
		&model.Client{},
		&model.UserClient{},
		&model.Task{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	clientRepo := repository.NewClientRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	grantRepo := repository.NewGrantRepository(gormDB)

	org, err := ensureOrganization(gormDB, organizationName)
	if err != nil {
		log.Fatal().Err(err).Msg("seed organization")
	}
	log.Info().Str("organization", org.Name).Msg("organization ready")

	admin, err := ensureUser(ctx, userRepo, org.ID, "Administrator", adminEmail, adminPassword, model.RoleAdmin)
	if err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}
	demo, err := ensureUser(ctx, userRepo, org.ID, "Demo User", demoEmail, demoPassword, model.RoleUser)
	if err != nil {
		log.Fatal().Err(err).Msg("seed demo user")
	}
	log.Info().Str("admin", admin.Email).Str("user", demo.Email).Msg("accounts ready")

	clients, err := ensureClients(ctx, clientRepo, org.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("seed clients")
	}
	log.Info().Int("count", len(clients)).Msg("clients ready")

	// Demo user can see the first two clients.
	grantSet := []uuid.UUID{clients[0].ID, clients[1].ID}
	if err := grantRepo.Replace(ctx, demo.ID, grantSet); err != nil {
		log.Fatal().Err(err).Msg("seed grants")
	}

	seeded, err := seedTasks(ctx, taskRepo, org.ID, demo.ID, clients[0].ID)
	if err != nil {
		log.Fatal().Err(err).Msg("seed tasks")
	}
	log.Info().Int("count", seeded).Msg("tasks ready")
}

func ensureOrganization(gormDB *gorm.DB, name string) (*model.Organization, error) {
	var org model.Organization
	err := gormDB.Where("name = ?", name).First(&org).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	org = model.Organization{Name: name}
	if err := gormDB.Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func ensureUser(ctx context.Context, repo repository.UserRepository, orgID uuid.UUID, name, email, password string, role model.Role) (*model.User, error) {
	existing, err := repo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:           name,
		Email:          email,
		PasswordHash:   string(hash),
		Role:           role,
		OrganizationID: orgID,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func ensureClients(ctx context.Context, repo repository.ClientRepository, orgID uuid.UUID) ([]model.Client, error) {
	seed := []model.Client{
		{Name: "Acme", Email: "contact@acme.example", Phone: "+48 600 100 200", OrganizationID: orgID},
		{Name: "Globex", Email: "hello@globex.example", Address: "1 Industrial Way", OrganizationID: orgID},
		{Name: "Initech", Email: "office@initech.example", OrganizationID: orgID},
	}
	out := make([]model.Client, 0, len(seed))
	for i := range seed {
		existing, err := repo.FindByEmail(ctx, seed[i].Email)
		if err == nil && existing != nil {
			out = append(out, *existing)
			continue
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err := repo.Create(ctx, &seed[i]); err != nil {
			return nil, err
		}
		out = append(out, seed[i])
	}
	return out, nil
}

// seedTasks creates one completed task per day over the past week plus one
// active task, all owned by userID and billed to clientID.
func seedTasks(ctx context.Context, repo repository.TaskRepository, orgID, userID, clientID uuid.UUID) (int, error) {
	existing, err := repo.List(ctx, repository.TaskFilter{UserID: &userID})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	count := 0
	now := time.Now()
	for day := 7; day >= 1; day-- {
		start := now.AddDate(0, 0, -day).Truncate(time.Hour)
		end := start.Add(time.Duration(90+day*15) * time.Minute)
		task := &model.Task{
			Title:          fmt.Sprintf("Design review %d", 8-day),
			Description:    "seeded demo task",
			StartTime:      start,
			EndTime:        &end,
			Duration:       model.ComputeDuration(start, &end),
			UserID:         userID,
			ClientID:       &clientID,
			OrganizationID: orgID,
		}
		if err := repo.Create(ctx, task); err != nil {
			return count, err
		}
		count++
	}

	active := &model.Task{
		Title:          "Sprint planning",
		StartTime:      now.Add(-30 * time.Minute),
		UserID:         userID,
		ClientID:       &clientID,
		OrganizationID: orgID,
	}
	if err := repo.Create(ctx, active); err != nil {
		return count, err
	}
	return count + 1, nil
}
