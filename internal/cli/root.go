package cli

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/incidents/internal/config"
	"github.com/pratik-mahalle/incidents/internal/domain/incident"
	"github.com/pratik-mahalle/incidents/internal/domain/oncall"
	"github.com/pratik-mahalle/incidents/internal/pkg/logger"
	"github.com/pratik-mahalle/incidents/internal/pkg/validator"
	"github.com/pratik-mahalle/incidents/internal/repository/sqlite"
	"github.com/pratik-mahalle/incidents/internal/services"
)

// app carries the state shared by every command of one invocation
type app struct {
	viper     *viper.Viper
	validator *validator.Validator

	cfgFile      string
	outputFormat string
	dbPath       string
	verbose      bool

	cfg      *config.Config
	logger   *logger.Logger
	rotation *oncall.Rotation

	db  *sql.DB
	svc incident.Service
}

func newApp() *app {
	return &app{
		viper:     viper.New(),
		validator: validator.New(),
		logger:    logger.Nop(),
	}
}

// Execute runs the incidents command tree
func Execute(ctx context.Context) error {
	a := newApp()
	defer a.close()
	return newRootCmd(a).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "incidents",
		Short: "Incident lifecycle and on-call tracker",
		Long: `incidents tracks operational incidents for a small team: creation,
assignment, status changes, timeline notes, resolution and MTTR, together
with a weekly on-call rotation and alert-to-incident creation.

State lives in a local SQLite database (default ~/.incidents/incidents.db).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			// config commands must work even when the stored config is invalid
			if isConfigCmd(cmd) {
				return nil
			}
			return a.setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $HOME/.incidents/config.yaml)")
	flags.StringVarP(&a.outputFormat, "output", "o", "table", "output format: table, json, yaml")
	flags.StringVar(&a.dbPath, "db", "", "database path (overrides config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	_ = a.viper.BindPFlag("output", flags.Lookup("output"))
	_ = a.viper.BindPFlag("db.path", flags.Lookup("db"))

	rootCmd.AddCommand(newActiveCmd(a))
	rootCmd.AddCommand(newCreateCmd(a))
	rootCmd.AddCommand(newShowCmd(a))
	rootCmd.AddCommand(newAssignCmd(a))
	rootCmd.AddCommand(newResolveCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newTimelineCmd(a))
	rootCmd.AddCommand(newPostmortemCmd(a))
	rootCmd.AddCommand(newMTTRCmd(a))
	rootCmd.AddCommand(newOnCallCmd(a))
	rootCmd.AddCommand(newAlertCmd(a))
	rootCmd.AddCommand(newMetricsCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".incidents"), nil
}

func (a *app) initConfig() error {
	v := a.viper
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("INCIDENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := config.Default()
	v.SetDefault("output", "table")
	v.SetDefault("db.path", def.Database.Path)
	v.SetDefault("db.busy_timeout", def.Database.BusyTimeout)
	v.SetDefault("log.level", def.Logging.Level)
	v.SetDefault("log.format", def.Logging.Format)
	v.SetDefault("log.output", def.Logging.OutputPath)
	v.SetDefault("oncall.roster", def.OnCall.Roster)
	v.SetDefault("oncall.handoff", def.OnCall.Handoff)

	if err := v.ReadInConfig(); err != nil {
		// an explicit --config path may not exist yet; config set creates it
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// setup resolves the layered configuration and builds the logger and
// rotation. The store is opened lazily by service.
func (a *app) setup() error {
	cfg := &config.Config{}
	if err := a.viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := a.validator.ValidateVar(a.getOutputFormat(), "oneof=table json yaml"); err != nil {
		return fmt.Errorf("invalid output format %q", a.getOutputFormat())
	}

	rotation, err := oncall.NewRotation(cfg.OnCall.Roster, oncall.WithHandoff(cfg.OnCall.Handoff))
	if err != nil {
		return fmt.Errorf("invalid on-call rotation: %w", err)
	}

	a.cfg = cfg
	a.rotation = rotation
	a.logger = logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	a.logger.WithFields(map[string]interface{}{
		"db":     cfg.Database.Path,
		"config": a.viper.ConfigFileUsed(),
	}).Debug("Configuration loaded")

	return nil
}

// service opens the store on first use
func (a *app) service(ctx context.Context) (incident.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	db, err := sqlite.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open incident store: %w", err)
	}

	a.db = db
	a.svc = services.NewIncidentService(sqlite.NewIncidentRepository(db), a.rotation, a.logger)
	return a.svc, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close incident store")
		}
		a.db = nil
		a.svc = nil
	}
}

func (a *app) getOutputFormat() string {
	if a.outputFormat != "" && a.outputFormat != "table" {
		return a.outputFormat
	}
	return a.viper.GetString("output")
}
