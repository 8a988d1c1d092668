package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lune-climate/spreadsheet-offset-tool/offset"
)

const defaultAPIURL = "https://api.lune.co"

// Config holds everything a run needs, assembled once at startup. Precedence,
// lowest to highest: built-in defaults, the optional settings file,
// environment variables, command line flags.
type Config struct {
	Input       string
	Output      string
	Logo        string
	Beneficiary string
	Portfolio   string
	AllowLive   bool

	APIKey string
	APIURL string
}

// settings is the optional YAML settings file (--config).
type settings struct {
	APIURL    string `yaml:"api-url"`
	Portfolio string `yaml:"portfolio"`
}

func (c *Config) load(settingsPath string) error {
	c.APIURL = defaultAPIURL
	c.Portfolio = offset.DefaultPortfolioLabel

	if settingsPath != "" {
		bytes, err := os.ReadFile(settingsPath)
		if err != nil {
			return fmt.Errorf("could not load settings (%v)", err)
		}

		s := settings{}
		if err := yaml.Unmarshal(bytes, &s); err != nil {
			return fmt.Errorf("could not parse settings file %v (%v)", settingsPath, err)
		}

		if s.APIURL != "" {
			c.APIURL = s.APIURL
		}

		if s.Portfolio != "" {
			c.Portfolio = s.Portfolio
		}
	}

	// .env is a convenience for local use, a missing file is fine
	godotenv.Load()

	c.APIKey = os.Getenv("LUNE_API_KEY")
	if c.APIKey == "" {
		return fmt.Errorf("Lune API key has to be provided in the LUNE_API_KEY environment variable")
	}

	// Useful only when running against a development instance of the Lune
	// API. End users won't override this.
	if url := os.Getenv("LUNE_API_URL"); url != "" {
		c.APIURL = url
	}

	return nil
}
