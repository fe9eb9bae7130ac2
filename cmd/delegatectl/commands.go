package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/config"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/pipeline"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/repository"
	"github.com/404drakefound/ucl-deepflow-task-delegation/pkg/database"
)

const appName = "delegatectl"

var (
	listKinds = []string{"people", "tasks", "agents", "delegations"}

	errImportFailed = errors.New("import finished with failures")
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           appName,
		Short:         "Load people, tasks and agents and delegate tasks to the best team",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// A missing .env is fine; the environment may already be populated.
			_ = godotenv.Load()

			level := logLevel
			if !cmd.Flags().Changed("log-level") {
				if env := os.Getenv("LOG_LEVEL"); env != "" {
					level = env
				}
			}

			slog.SetDefault(observability.NewLogger(cmd.ErrOrStderr(), level))
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(),
		newImportPeopleCmd(),
		newImportTasksCmd(),
		newAddAgentCmd(),
		newDelegateCmd(),
		newListCmd(),
	)

	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the pgvector extension and the people, tasks, agents and delegations tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.NewSchema(db).Ensure(ctx); err != nil {
				return fmt.Errorf("failed to ensure schema: %w", err)
			}

			slog.Info("schema ready")

			return nil
		},
	}
}

func newImportPeopleCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import-people",
		Short: "Create a person from every PDF resume in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resumes, err := listResumes(dir)
			if err != nil {
				return err
			}

			if len(resumes) == 0 {
				slog.Warn("no PDF resumes found", "dir", dir)

				return nil
			}

			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				failed := 0

				for _, resume := range resumes {
					logger := slog.With("file", resume.Name, "external_id", resume.ExternalID)

					data, err := os.ReadFile(resume.Path)
					if err != nil {
						logger.Error("failed to read resume", "error", err)

						failed++

						continue
					}

					person, err := p.People.CreatePerson(ctx, resume.ExternalID, llm.DocumentSource(&llm.Document{
						Name:     resume.Name,
						MIMEType: llm.DetectMIMEType(resume.Name),
						Data:     data,
					}))
					if err != nil {
						logger.Error("failed to create person", "error", err)

						failed++

						continue
					}

					logger.Info("person stored", "id", person.ID, "has_embedding", person.HasEmbedding)
				}

				return importResult(failed, len(resumes))
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "data/resume", "directory holding PDF resumes")

	return cmd
}

func newImportTasksCmd() *cobra.Command {
	var (
		dir      string
		delegate bool
	)

	cmd := &cobra.Command{
		Use:   "import-tasks",
		Short: "Create tasks from <sector>.txt files, optionally delegating each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := listTasks(dir)
			if err != nil {
				return err
			}

			if len(tasks) == 0 {
				slog.Warn("no task files found", "dir", dir)

				return nil
			}

			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				failed := 0

				for _, t := range tasks {
					logger := slog.With("external_id", t.ExternalID)

					task, err := p.Tasks.CreateTask(ctx, t.ExternalID, t.Description)
					if err != nil {
						logger.Error("failed to create task", "error", err)

						failed++

						continue
					}

					logger.Info("task stored", "id", task.ID, "has_embedding", task.HasEmbedding)

					if !delegate {
						continue
					}

					decision, err := p.Matcher.Delegate(ctx, t.ExternalID)
					if err != nil {
						logger.Error("failed to delegate task", "error", err)

						failed++

						continue
					}

					logger.Info("task delegated", "person_ids", decision.PersonIDs, "agent_ids", decision.AgentIDs)
				}

				return importResult(failed, len(tasks))
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "data/task", "directory holding <sector>.txt task files")
	cmd.Flags().BoolVar(&delegate, "delegate", false, "delegate every task right after it is stored")

	return cmd
}

func newAddAgentCmd() *cobra.Command {
	var externalID, description string

	cmd := &cobra.Command{
		Use:   "add-agent",
		Short: "Create an agent from a free-text description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				agent, err := p.Agents.CreateAgent(ctx, externalID, description)
				if err != nil {
					return fmt.Errorf("failed to create agent: %w", err)
				}

				return writeJSON(cmd.OutOrStdout(), agent)
			})
		},
	}

	cmd.Flags().StringVar(&externalID, "id", "", "external id of the agent")
	cmd.Flags().StringVar(&description, "description", "", "what the agent does")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func newDelegateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delegate <task-external-id>",
		Short: "Choose and store the best people and agents for a stored task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				decision, err := p.Matcher.Delegate(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to delegate task %q: %w", args[0], err)
				}

				return writeJSON(cmd.OutOrStdout(), decision)
			})
		},
	}
}

func newListCmd() *cobra.Command {
	var params models.ListParams

	cmd := &cobra.Command{
		Use:       "list {people|tasks|agents|delegations}",
		Short:     "Print stored records as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: listKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) error {
				var (
					records any
					err     error
				)

				switch args[0] {
				case "people":
					records, err = p.People.ListPeople(ctx, params)
				case "tasks":
					records, err = p.Tasks.ListTasks(ctx, params)
				case "agents":
					records, err = p.Agents.ListAgents(ctx, params)
				case "delegations":
					records, err = p.Delegations.ListDelegations(ctx, params)
				}

				if err != nil {
					return fmt.Errorf("failed to list %s: %w", args[0], err)
				}

				return writeJSON(cmd.OutOrStdout(), records)
			})
		},
	}

	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum number of records (0 for all)")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "number of records to skip")

	return cmd
}

// connect loads configuration and opens the pool. Caller closes the pool.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.LoadForCLI()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithVectorTypes(),
		database.WithMaxConns(int32(cfg.DatabaseMaxConns)), //nolint:gosec // validated in config
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, db, nil
}

// withPipeline runs fn with every service wired against the configured database and models.
func withPipeline(ctx context.Context, fn func(ctx context.Context, p *pipeline.Pipeline) error) error {
	cfg, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := pipeline.New(ctx, pipeline.Params{Config: cfg, DB: db, Logger: slog.Default()})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	return fn(ctx, p)
}

func importResult(failed, total int) error {
	if failed == 0 {
		slog.Info("import finished", "total", total)

		return nil
	}

	return fmt.Errorf("%w: %d of %d", errImportFailed, failed, total)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}
