package main

import (
	"io"
	"net/url"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/poi-ingest/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return renderConfig(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

var dsnPassword = regexp.MustCompile(`(password=)\S+`)

// redactDSN hides the password of a postgres URL or key/value connection string.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}xxxxx")
}

func renderConfig(out io.Writer, c *config.Config) error {
	redacted := *c
	redacted.Store.DatabaseURL = redactDSN(c.Store.DatabaseURL)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		return eris.Wrap(err, "config: encode yaml")
	}
	return eris.Wrap(enc.Close(), "config: encode yaml")
}
