package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"content-factory-ai/internal/config"
	einoobs "content-factory-ai/internal/observability/eino"
	"content-factory-ai/internal/wire"
	"content-factory-ai/pkg/logger"
)

// coreBuilder 按配置组装应用服务，测试中替换为内存实现
type coreBuilder func(ctx context.Context, cfg *config.Config) (*wire.Core, func(), error)

func defaultBuilder(ctx context.Context, cfg *config.Config) (*wire.Core, func(), error) {
	einoobs.Init()
	return wire.InitializeCore(ctx, cfg)
}

// session 单次命令执行的上下文
type session struct {
	cfg  *config.Config
	core *wire.Core
	user string
	out  io.Writer
	fmt  string
}

func newApp(build coreBuilder) *cli.Command {
	return &cli.Command{
		Name:  "contentctl",
		Usage: "Create and drive content generation projects",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "configs", Usage: "config directory"},
			&cli.StringFlag{Name: "store", Usage: "storage driver override: memory|postgres", Sources: cli.EnvVars("CONTENTCTL_STORE")},
			&cli.StringFlag{Name: "user", Usage: "acting user id (defaults to app.demo_user_id)", Sources: cli.EnvVars("CONTENTCTL_USER")},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "json", Usage: "output format: json|yaml"},
		},
		Commands: []*cli.Command{
			createCmd(build),
			listCmd(build),
			getCmd(build),
			chaptersCmd(build),
			runCmd(build),
			lifecycleCmd(build, "pause", "Pause a project"),
			lifecycleCmd(build, "resume", "Resume a paused project"),
			lifecycleCmd(build, "cancel", "Cancel a project"),
			deleteCmd(build),
			regenerateCmd(build),
			analyticsCmd(build),
			exportCmd(build),
			modelsCmd(),
			tokenCmd(),
		},
	}
}

// loadConfig 读取配置并应用全局覆盖
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadFrom(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if store := cmd.String("store"); store != "" {
		cfg.Database.Driver = store
	}
	logger.InitWithWriter(os.Stderr, cfg.Observability.Logging.Level, "text")
	return cfg, nil
}

// withSession 组装服务后执行 fn，结束时释放资源
func withSession(ctx context.Context, cmd *cli.Command, build coreBuilder, fn func(ctx context.Context, s *session) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	core, cleanup, err := build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing services: %w", err)
	}
	defer cleanup()

	user := cmd.String("user")
	if user == "" {
		user = cfg.App.DemoUserID
	}
	if user == "" {
		return fmt.Errorf("--user is required when app.demo_user_id is empty")
	}
	ctx = logger.WithContext(ctx, logger.UserIDKey, user)

	return fn(ctx, &session{
		cfg:  cfg,
		core: core,
		user: user,
		out:  writerOf(cmd),
		fmt:  cmd.String("output"),
	})
}

func writerOf(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// print 按 --output 输出结构化结果
func (s *session) print(v any) error {
	return render(s.out, s.fmt, v)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// requireArgs 校验位置参数个数
func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) < len(names) {
		return nil, fmt.Errorf("missing argument <%s>", names[len(args)])
	}
	return args[:len(names)], nil
}
