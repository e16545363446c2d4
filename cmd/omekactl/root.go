package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/config"
	"github.com/goliatone/go-omeka-mapper/omeka"
	"github.com/goliatone/go-omeka-mapper/pkg/di"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

// app carries the state shared by every command of one invocation.
type app struct {
	viper      *viper.Viper
	configFile string
	selector   string
	container  *di.Container
}

func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	root := &cobra.Command{
		Use:   "omekactl",
		Short: "Read and write Omeka S items through their resource templates",
		Long: `omekactl talks to an Omeka S REST API. Items are read and written through
their resource templates: values are keyed by property term and typed by the
data types the template declares.

Settings come from flags, OMEKA_* environment variables and an optional YAML
config file, in that order of precedence.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file")
	flags.String("api", "", "API root, e.g. https://example.org/api (env OMEKA_API)")
	flags.String("key-identity", "", "API key identity (env OMEKA_KEY_IDENTITY)")
	flags.String("key-credential", "", "API key credential (env OMEKA_KEY_CREDENTIAL)")
	flags.String("log-level", "", "debug, info, warn or error (env OMEKA_LOG_LEVEL)")
	flags.Int("page-size", 0, "entries per listing page, server default when 0")
	flags.StringVar(&a.selector, "select", "", "JSONPath applied to the output, e.g. \"$['dcterms:title']\"")

	_ = a.viper.BindPFlag(config.KeyAPI, flags.Lookup("api"))
	_ = a.viper.BindPFlag(config.KeyKeyIdentity, flags.Lookup("key-identity"))
	_ = a.viper.BindPFlag(config.KeyKeyCredential, flags.Lookup("key-credential"))
	_ = a.viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.viper.BindPFlag(config.KeyPageSize, flags.Lookup("page-size"))

	root.AddCommand(
		newTemplatesCmd(a),
		newTemplateCmd(a),
		newItemCmd(a),
		newItemsCmd(a),
		newCreateCmd(a),
		newSetCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "omekactl v"+version)
		},
	}
}

// setup loads the configuration and wires the session.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	switch cmd.Name() {
	case "version", "help":
		return nil
	}

	container, err := di.NewContainerFromViper(a.viper, a.configFile, di.WithLogOutput(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	a.container = container
	return nil
}

func (a *app) session() *omeka.Session {
	return a.container.Session()
}

// template resolves ref as a numeric id, or else as a label after preloading
// the template listing.
func (a *app) template(ctx context.Context, ref string) (*omeka.Template, error) {
	templates := a.session().Templates
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return templates.Template(ctx, id)
	}
	if err := templates.PreloadPartial(ctx); err != nil {
		return nil, err
	}
	return templates.TemplateByName(ctx, ref)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id "+strconv.Quote(arg), errors.CategoryBadInput)
	}
	return id, nil
}
