// Package main 初始化数据库表结构，可选写入演示项目
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"content-factory-ai/internal/application/project"
	"content-factory-ai/internal/config"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/internal/wire"
	"content-factory-ai/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()

	// 1. 表结构迁移（仅 PostgreSQL）
	pg, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	if err := pg.AutoMigrate(ctx); err != nil {
		cleanup()
		log.Fatalf("failed to migrate schema: %v", err)
	}
	cleanup()
	fmt.Println("Schema migrated: projects, chapters, agent_logs")

	// 2. 演示项目
	if seed, _ := strconv.ParseBool(os.Getenv("BOOTSTRAP_SEED_DEMO")); !seed {
		fmt.Println("Bootstrap completed (set BOOTSTRAP_SEED_DEMO=true to create a demo project)")
		return
	}

	core, cleanupCore, err := wire.InitializeCore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer cleanupCore()

	userID := cfg.App.DemoUserID
	existing, err := core.Service.List(ctx, userID, repository.NewPagination(1, 1))
	if err != nil {
		log.Fatalf("failed to list demo projects: %v", err)
	}
	if existing.Total > 0 {
		fmt.Printf("Demo user %s already has %d project(s), skipping seed\n", userID, existing.Total)
		return
	}

	p, err := core.Service.Create(ctx, userID, demoProject())
	if err != nil {
		log.Fatalf("failed to create demo project: %v", err)
	}
	fmt.Printf("Demo project created with ID: %s (%d chapters)\n", p.ID, p.TotalChapters)
	fmt.Println("Bootstrap completed successfully!")
}

func demoProject() project.CreateInput {
	return project.CreateInput{
		Title:       "Introdução à Programação em Go",
		Description: "Um curso prático para quem já programa em outra linguagem.",
		Type:        entity.ContentTypeCourse,
		TargetPages: 24,
		Outline: []project.OutlineInput{
			{Title: "Ferramentas e primeiro programa", Description: "Instalação, módulos e go run."},
			{Title: "Tipos, structs e interfaces"},
			{Title: "Tratamento de erros"},
			{Title: "Goroutines e canais"},
		},
	}
}
