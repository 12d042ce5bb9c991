package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"convoqa/internal/config"
	"convoqa/internal/dataset"
	"convoqa/internal/domain"
	"convoqa/internal/intent"
	"convoqa/internal/interaction"
	"convoqa/internal/logger"
	"convoqa/internal/ranker"
	"convoqa/internal/service"
	"convoqa/internal/summarizer"
	"convoqa/internal/tui"
	"convoqa/internal/wiki"
)

type options struct {
	configPath string
	dataPath   string
	logPath    string
	appLog     string
	logLevel   string
	fallback   string
	seed       int64
}

func globalFlags(o *options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file (default: ./config.yaml or ~/.config/convoqa/config.yaml)",
			Sources:     cli.EnvVars("CONVOQA_CONFIG"),
			Destination: &o.configPath,
		},
		&cli.StringFlag{
			Name:        "data",
			Aliases:     []string{"d"},
			Usage:       "Knowledge base CSV file",
			Destination: &o.dataPath,
		},
		&cli.StringFlag{
			Name:        "interactions",
			Usage:       "Interaction log CSV file",
			Destination: &o.logPath,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "Application log file; empty logs to stderr",
			Destination: &o.appLog,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Application log level (debug, info, warn, error)",
			Destination: &o.logLevel,
		},
		&cli.StringFlag{
			Name:        "fallback",
			Usage:       "Encyclopedia lookup policy: always, on-miss or off",
			Destination: &o.fallback,
		},
		&cli.IntFlag{
			Name:        "seed",
			Usage:       "Seed for canned response selection; 0 picks a random seed",
			Destination: &o.seed,
		},
	}
}

func newApp() *cli.Command {
	var o options
	return &cli.Command{
		Name:  "convoqa",
		Usage: "Answer university questions from a CSV knowledge base",
		Flags: globalFlags(&o),
		Commands: []*cli.Command{
			askCommand(&o),
			historyCommand(&o),
			configCommand(&o),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := o.load(c)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging.Level, cfg.Logging.File)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			svc, err := newAssistant(cfg, log)
			if err != nil {
				return err
			}
			m := tui.New(svc, overview(svc))
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				return goerr.Wrap(err, "tui failed")
			}
			return nil
		},
	}
}

func askCommand(o *options) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question and exit",
		ArgsUsage: "<question...>",
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return goerr.New("please enter a question")
			}
			cfg, err := o.load(c)
			if err != nil {
				return err
			}
			// stderr by default so stdout carries only the answer
			if !c.IsSet("log-file") {
				cfg.Logging.File = ""
			}
			log, err := logger.New(cfg.Logging.Level, cfg.Logging.File)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			svc, err := newAssistant(cfg, log)
			if err != nil {
				return err
			}
			ans, err := svc.Ask(ctx, question)
			if err != nil {
				return err
			}
			printAnswer(c.Root().Writer, ans)
			return nil
		},
	}
}

func historyCommand(o *options) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print the interaction log",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := o.load(c)
			if err != nil {
				return err
			}
			entries, err := interaction.ReadAll(cfg.Interactions.Path)
			if err != nil {
				return err
			}
			w := c.Root().Writer
			for _, e := range entries {
				fmt.Fprintf(w, "%s  Q: %s\n%s  A: %s\n", e.Timestamp.Format(interaction.TimeLayout), e.Question,
					strings.Repeat(" ", len(interaction.TimeLayout)), e.Answer)
			}
			return nil
		},
	}
}

func configCommand(o *options) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the resolved configuration to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing file"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path := o.configPath
					if path == "" {
						p, err := config.UserConfigPath()
						if err != nil {
							return goerr.Wrap(err, "failed to resolve config path")
						}
						path = p
					}
					_, statErr := os.Stat(path)
					if statErr == nil && !c.Bool("force") {
						return goerr.New("config file already exists, use --force to overwrite", goerr.V("path", path))
					}
					if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
						return goerr.Wrap(statErr, "failed to stat config file", goerr.V("path", path))
					}
					cfg, err := o.load(c)
					if err != nil {
						return err
					}
					if err := config.Save(path, cfg); err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "wrote %s\n", path)
					return nil
				},
			},
		},
	}
}

// load resolves configuration: file, then environment, then flags.
func (o *options) load(c *cli.Command) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if o.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(o.configPath)
	}
	if err != nil {
		return nil, err
	}
	if o.dataPath != "" {
		cfg.Dataset.Path = o.dataPath
	}
	if o.logPath != "" {
		cfg.Interactions.Path = o.logPath
	}
	if c.IsSet("log-file") {
		cfg.Logging.File = o.appLog
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.fallback != "" {
		cfg.Encyclopedia.Policy = o.fallback
	}
	if o.seed != 0 {
		cfg.Classifier.Seed = o.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAssistant(cfg *config.AppConfig, log *zap.Logger) (*service.AssistantImpl, error) {
	policy, err := service.ParseFallbackPolicy(cfg.Encyclopedia.Policy)
	if err != nil {
		return nil, err
	}
	var classifierOpts []intent.Option
	if cfg.Classifier.Seed != 0 {
		classifierOpts = append(classifierOpts, intent.WithSeed(cfg.Classifier.Seed))
	}
	opts := []service.Option{service.WithLogger(log)}
	if policy != service.FallbackOff {
		enc := wiki.NewClient(wiki.Config{
			BaseURL:   cfg.Encyclopedia.BaseURL,
			Language:  cfg.Encyclopedia.Language,
			Sentences: cfg.Encyclopedia.Sentences,
			Timeout:   time.Duration(cfg.Encyclopedia.TimeoutSecs) * time.Second,
		})
		opts = append(opts, service.WithEncyclopedia(enc, policy))
	}
	log.Info("starting",
		zap.String("dataset", cfg.Dataset.Path),
		zap.String("interactions", cfg.Interactions.Path),
		zap.String("fallback", string(policy)),
	)
	return service.NewAssistant(
		dataset.NewCache(dataset.NewFileLoader(cfg.Dataset.Path)),
		intent.New(classifierOpts...),
		ranker.New(),
		interaction.NewCSVLogger(cfg.Interactions.Path),
		opts...,
	), nil
}

func overview(svc domain.Assistant) string {
	kb, err := svc.KnowledgeBase()
	if err != nil {
		return ""
	}
	return summarizer.NewFrequencySummarizer().Summarize(kb.Contexts(), 1)
}

func printAnswer(w io.Writer, ans *domain.Answer) {
	fmt.Fprintln(w, ans.Text)
	if ans.Match != nil {
		fmt.Fprintf(w, "\n[context row %d, score %.3f]\n", ans.Match.Row.Index+1, ans.Match.Score)
		for _, f := range ans.Match.Row.Fields {
			if strings.TrimSpace(f.Value) != "" {
				fmt.Fprintf(w, "  %s: %s\n", f.Name, f.Value)
			}
		}
	}
	if ans.Summary != nil {
		fmt.Fprintf(w, "\n[%s]\n%s\n", ans.Summary.Title, ans.Summary.Extract)
		if ans.Summary.URL != "" {
			fmt.Fprintln(w, ans.Summary.URL)
		}
	}
}
