package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Configuration is read, in order of
// precedence, from flags, TICKETFORM_* environment variables and the config
// file (ticketform.yaml in the working directory or $HOME/.ticketform).
func newRootCommand() *cobra.Command {
	v := viper.New()
	app := &app{config: v}

	root := &cobra.Command{
		Use:   "ticketform",
		Short: "Author catalog tickets from category templates",
		Long: `ticketform composes ticket forms from category templates, resolves
dependent fields against a catalog and submits the finished ticket.

Examples:
  ticketform categories
  ticketform new item-option
  ticketform show 6f1c... --format yaml
  ticketform catalog import seed.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(v, cmd); err != nil {
				return err
			}
			return app.init()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ticketform.yaml)")
	flags.StringP("store", "s", "ticketform.json", "path to the JSON store file")
	flags.String("templates", "", "directory of category templates (default: built-in)")
	flags.String("catalog-url", "", "base URL of an HTTP catalog backend (overrides --store)")
	flags.String("log-level", "warn", "log level: debug|info|warn|error")
	flags.String("log-format", "text", "log format: text|json")

	root.AddCommand(
		newCategoriesCommand(app),
		newNewCommand(app),
		newEditCommand(app),
		newShowCommand(app),
		newTicketsCommand(app),
		newCatalogCommand(app),
	)
	return root
}

func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("TICKETFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("ticketform")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ticketform")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.GetString("config") != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
