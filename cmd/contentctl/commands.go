package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"content-factory-ai/internal/domain/agentmodel"
	"content-factory-ai/internal/domain/entity"
	"content-factory-ai/internal/domain/repository"
	"content-factory-ai/pkg/utils"
)

func createCmd(build coreBuilder) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a project from flags or an outline YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "outline", Usage: "YAML file with title, type, target_pages, outline and agent_config"},
			&cli.StringFlag{Name: "title", Usage: "project title"},
			&cli.StringFlag{Name: "description", Usage: "project description"},
			&cli.StringFlag{Name: "type", Usage: "book|course|article"},
			&cli.IntFlag{Name: "pages", Usage: "target page count"},
			&cli.StringSliceFlag{Name: "chapter", Usage: "chapter title, repeat in order"},
			&cli.IntFlag{Name: "chapters", Usage: "number of placeholder chapters when no outline is given"},
			&cli.StringFlag{Name: "writer-model", Usage: "model for the writer role"},
			&cli.StringFlag{Name: "editor-model", Usage: "model for the editor role"},
			&cli.StringFlag{Name: "artist-model", Usage: "model for the illustrator role"},
			&cli.BoolFlag{Name: "run", Usage: "run all chapters right after creation"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			in, err := createInputFrom(cmd)
			if err != nil {
				return err
			}
			return withSession(ctx, cmd, build, func(ctx context.Context, s *session) error {
				p, err := s.core.Service.Create(ctx, s.user, in)
				if err != nil {
					return err
				}
				if !cmd.Bool("run") {
					return s.print(p)
				}
				res, err := s.core.Service.RunPending(ctx, s.user, p.ID)
				if err != nil {
					return err
				}
				return s.print(res)
			})
		},
	}
}

func listCmd(build coreBuilder) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the user's projects, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Value: 1},
			&cli.IntFlag{Name: "page-size", Value: 20},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withSession(ctx, cmd, build, func(ctx context.Context, s *session) error {
				res, err := s.core.Service.List(ctx, s.user, repository.NewPagination(int(cmd.Int("page")), int(cmd.Int("page-size"))))
				if err != nil {
					return err
				}
				return s.print(res)
			})
		},
	}
}

func getCmd(build coreBuilder) *cli.Command {
	return projectCmd(build, "get", "Show a project", func(ctx context.Context, s *session, pid string) (any, error) {
		return s.core.Service.Get(ctx, s.user, pid)
	})
}

func chaptersCmd(build coreBuilder) *cli.Command {
	return projectCmd(build, "chapters", "List a project's chapters in order", func(ctx context.Context, s *session, pid string) (any, error) {
		return s.core.Service.ListChapters(ctx, s.user, pid)
	})
}

func runCmd(build coreBuilder) *cli.Command {
	return projectCmd(build, "run", "Process every pending chapter sequentially", func(ctx context.Context, s *session, pid string) (any, error) {
		return s.core.Service.RunPending(ctx, s.user, pid)
	})
}

func analyticsCmd(build coreBuilder) *cli.Command {
	return projectCmd(build, "analytics", "Show chapter stats, token usage and recent agent calls", func(ctx context.Context, s *session, pid string) (any, error) {
		return s.core.Service.Analytics(ctx, s.user, pid)
	})
}

func lifecycleCmd(build coreBuilder, name, usage string) *cli.Command {
	return projectCmd(build, name, usage, func(ctx context.Context, s *session, pid string) (any, error) {
		switch name {
		case "pause":
			return s.core.Service.Pause(ctx, s.user, pid)
		case "resume":
			return s.core.Service.Resume(ctx, s.user, pid)
		default:
			return s.core.Service.Cancel(ctx, s.user, pid)
		}
	})
}

func deleteCmd(build coreBuilder) *cli.Command {
	return projectCmd(build, "delete", "Delete a project with its chapters and agent logs", func(ctx context.Context, s *session, pid string) (any, error) {
		if err := s.core.Service.Delete(ctx, s.user, pid); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": pid}, nil
	})
}

// projectCmd 以 <project-id> 为唯一参数的命令
func projectCmd(build coreBuilder, name, usage string, fn func(ctx context.Context, s *session, pid string) (any, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<project-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "project-id")
			if err != nil {
				return err
			}
			return withSession(ctx, cmd, build, func(ctx context.Context, s *session) error {
				v, err := fn(ctx, s, args[0])
				if err != nil {
					return err
				}
				return s.print(v)
			})
		},
	}
}

func regenerateCmd(build coreBuilder) *cli.Command {
	return &cli.Command{
		Name:      "regenerate",
		Usage:     "Rewrite one chapter regardless of its status",
		ArgsUsage: "<project-id> <chapter-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "project-id", "chapter-id")
			if err != nil {
				return err
			}
			return withSession(ctx, cmd, build, func(ctx context.Context, s *session) error {
				chapter, err := s.core.Service.RegenerateChapter(ctx, s.user, args[0], args[1])
				if err != nil {
					return err
				}
				return s.print(chapter)
			})
		},
	}
}

func exportCmd(build coreBuilder) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render a project as Markdown",
		ArgsUsage: "<project-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file, '-' for stdout (default: <slug>.md)"},
			&cli.BoolFlag{Name: "publish", Usage: "upload to object storage and print the URL"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "project-id")
			if err != nil {
				return err
			}
			return withSession(ctx, cmd, build, func(ctx context.Context, s *session) error {
				res, err := s.core.Service.Export(ctx, s.user, args[0], cmd.Bool("publish"))
				if err != nil {
					return err
				}
				if res.URL != "" {
					return s.print(res)
				}

				out := cmd.String("out")
				if out == "-" {
					_, err := s.out.Write(res.Content)
					return err
				}
				if out == "" {
					out = res.Filename
				}
				if err := os.WriteFile(out, res.Content, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", out, err)
				}
				return s.print(map[string]any{"file": out, "bytes": len(res.Content)})
			})
		},
	}
}

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List selectable models with prices per million tokens",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return render(writerOf(cmd), cmd.String("output"), map[string]any{
				"default": agentmodel.Default,
				"models":  agentmodel.Catalog(),
			})
		},
	}
}

func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Issue a bearer token for a user",
		ArgsUsage: "<user-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "display name claim"},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (default: security.jwt.expiration)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, "user-id")
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Security.JWT.Secret == "" {
				return fmt.Errorf("security.jwt.secret is not configured")
			}
			ttl := cmd.Duration("ttl")
			if ttl <= 0 {
				ttl = cfg.Security.JWT.Expiration
			}
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			token, err := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer).GenerateToken(args[0], cmd.String("name"), ttl)
			if err != nil {
				return err
			}
			return render(writerOf(cmd), cmd.String("output"), map[string]any{
				"user_id":    args[0],
				"token":      token,
				"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
			})
		},
	}
}

// roleModels 命令行覆盖的角色模型
func roleModels(cmd *cli.Command, cfg *entity.AgentConfig) {
	if v := cmd.String("writer-model"); v != "" {
		cfg.Writer = v
	}
	if v := cmd.String("editor-model"); v != "" {
		cfg.Editor = v
	}
	if v := cmd.String("artist-model"); v != "" {
		cfg.Artist = v
	}
}
