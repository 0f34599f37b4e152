package cli

import (
	"context"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/igolaizola/aimusic/pkg/cmd/credits"
	"github.com/igolaizola/aimusic/pkg/cmd/download"
	"github.com/igolaizola/aimusic/pkg/cmd/generate"
	"github.com/igolaizola/aimusic/pkg/cmd/lyrics"
	"github.com/igolaizola/aimusic/pkg/cmd/migrate"
	"github.com/igolaizola/aimusic/pkg/cmd/serve"
	"github.com/igolaizola/aimusic/pkg/cmd/setting"
	"github.com/igolaizola/aimusic/pkg/cmd/status"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("aimusic", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "aimusic [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newSettingCommand(),
			newGenerateCommand(),
			newStatusCommand(),
			newCreditsCommand(),
			newLyricsCommand(),
			newDownloadCommand(),
			newServeCommand(),
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("AIMUSIC"),
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "aimusic version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create or update the database schema",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newSettingCommand() *ffcli.Command {
	cmd := "setting"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &setting.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Key, "key", "", "setting key (api-key, webhook-secret, webhook-url)")
	fs.StringVar(&cfg.Value, "value", "", "value to set")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "store a configuration value in the database",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return setting.Run(ctx, cfg)
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "exit after this time generating songs")
	fs.IntVar(&cfg.Concurrency, "concurrency", 1, "number of concurrent generations")
	fs.DurationVar(&cfg.WaitMin, "wait-min", 5*time.Second, "minimum wait between generations")
	fs.DurationVar(&cfg.WaitMax, "wait-max", 15*time.Second, "maximum wait between generations")
	fs.IntVar(&cfg.Limit, "limit", 0, "max number of generations (0 for unlimited)")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy url (optional)")

	fs.StringVar(&cfg.APIKey, "api-key", "", "api key")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "api base url (optional)")

	fs.StringVar(&cfg.Model, "model", "suno", "model (suno, producer, nuro)")
	fs.StringVar(&cfg.Prompt, "prompt", "", "song description")
	fs.StringVar(&cfg.Lyrics, "lyrics", "", "custom lyrics")
	fs.StringVar(&cfg.Style, "style", "", "music style")
	fs.StringVar(&cfg.Title, "title", "", "song title")
	fs.IntVar(&cfg.Duration, "duration", 0, "song duration in seconds")
	fs.BoolVar(&cfg.Instrumental, "instrumental", false, "generate instrumental music")

	fs.StringVar(&cfg.Input, "input", "", "batch input file (json, yaml or csv)")

	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "poll interval (optional)")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", 0, "poll timeout (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "generate songs and track them in the database",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

func newStatusCommand() *ffcli.Command {
	cmd := "status"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &status.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres), optional")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.APIKey, "api-key", "", "api key")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "api base url (optional)")
	fs.StringVar(&cfg.Model, "model", "suno", "model (suno, producer, nuro)")
	fs.StringVar(&cfg.TaskID, "task", "", "task id")
	fs.BoolVar(&cfg.Wait, "wait", false, "poll until the task reaches a terminal state")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "poll interval (optional)")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", 0, "poll timeout (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "query the state of a task",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return status.Run(ctx, cfg)
		},
	}
}

func newCreditsCommand() *ffcli.Command {
	cmd := "credits"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &credits.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.APIKey, "api-key", "", "api key")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "api base url (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "print the remaining account credits",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return credits.Run(ctx, cfg)
		},
	}
}

func newLyricsCommand() *ffcli.Command {
	cmd := "lyrics"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &lyrics.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.APIKey, "api-key", "", "api key")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "api base url (optional)")
	fs.StringVar(&cfg.Prompt, "prompt", "", "lyrics prompt")
	fs.IntVar(&cfg.Variations, "variations", 1, "number of variations")
	fs.StringVar(&cfg.Output, "output", "", "output file (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "generate lyrics from a prompt",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return lyrics.Run(ctx, cfg)
		},
	}
}

func newDownloadCommand() *ffcli.Command {
	cmd := "download"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &download.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.FSType, "fs-type", "local", "file storage type (local, s3, telegram)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "file storage connection string")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "exit after this time downloading songs")
	fs.IntVar(&cfg.Concurrency, "concurrency", 1, "number of concurrent downloads")
	fs.IntVar(&cfg.Limit, "limit", 0, "max number of downloads (0 for unlimited)")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy url (optional)")
	fs.StringVar(&cfg.Model, "model", "", "only download songs of this model (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "download completed songs to the file store",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return download.Run(ctx, cfg)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}
	var user, pass string

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "sqlite", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", "", "shared secret to verify webhook signatures")
	fs.StringVar(&user, "user", "", "basic auth user (optional)")
	fs.StringVar(&pass, "pass", "", "basic auth password (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("aimusic %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "receive webhook events and update task records",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if user != "" {
				cfg.Credentials = map[string]string{user: pass}
			}
			return serve.Serve(ctx, cfg)
		},
	}
}
