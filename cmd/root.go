/*
Package cmd implements the command-line interface for taskflow.
It provides commands for serving the task automation API, running a single
prompt from the terminal, and tailing a running server's event stream.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/taskflow-go/pkg/agents"
	"github.com/theapemachine/taskflow-go/pkg/provider"
	"github.com/theapemachine/taskflow-go/pkg/stores"
	s3store "github.com/theapemachine/taskflow-go/pkg/stores/s3"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

/*
rootCmd represents the base command when called without any subcommands
*/
var (
	projectName  = "taskflow"
	cfgFile      string
	logLevelFlag string
	openaiAPIKey string

	rootCmd = &cobra.Command{
		Use:   "taskflow",
		Short: "Turn natural-language prompts into executed task plans",
		Long:  longRoot,
	}
)

/*
Secrets are read from the environment exactly once, here, and injected into
components as explicit config. Nothing below cmd touches the environment.
*/
var (
	anthropicAPIKey  = os.Getenv("ANTHROPIC_API_KEY")
	googleAPIKey     = os.Getenv("GEMINI_API_KEY")
	cohereAPIKey     = os.Getenv("CO_API_KEY")
	deepseekAPIKey   = os.Getenv("DEEPSEEK_API_KEY")
	slackBotToken    = os.Getenv("SLACK_BOT_TOKEN")
	twilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	twilioAuthToken  = os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")
)

/*
Execute is the main entry point for the taskflow CLI. It initializes the
root command and executes it.
*/
func Execute() error {
	return rootCmd.Execute()
}

/*
init is a function that initializes the root command and sets up the persistent flags.
*/
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevelFlag,
		"log-level",
		"",
		"log level (debug, info, warn, error); overrides the config file",
	)

	rootCmd.PersistentFlags().StringVar(
		&openaiAPIKey,
		"openai-api-key",
		os.Getenv("OPENAI_API_KEY"),
		"API key for the OpenAI provider",
	)
}

/*
initConfig is a function that initializes the configuration for the taskflow
CLI. It writes the default config file to the user's home directory if it
doesn't exist, and then reads the config file from the user's home directory.
*/
func initConfig() {
	var err error

	if err = writeConfig(); err != nil {
		log.Fatal(err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(configDir())

	if err = viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}

	level := viper.GetString("log.level")
	if logLevelFlag != "" {
		level = logLevelFlag
	}

	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal("unknown log level", "level", level)
		}

		log.SetLevel(parsed)
	}
}

/*
writeConfig is a function that writes the default config file to the user's home directory.
*/
func writeConfig() (err error) {
	var (
		fh  fs.File
		buf bytes.Buffer
	)

	// Create the config directory once before processing files
	dir := configDir()
	if !CheckFileExists(dir) {
		if err = os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	for _, file := range []string{cfgFile} {
		fullPath := filepath.Join(dir, file)

		if CheckFileExists(fullPath) {
			continue
		}

		if fh, err = embedded.Open("cfg/" + file); err != nil {
			return fmt.Errorf("failed to open embedded config file: %w", err)
		}

		if _, err = io.Copy(&buf, fh); err != nil {
			fh.Close()
			return fmt.Errorf("failed to read embedded config file: %w", err)
		}

		if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			fh.Close()
			return fmt.Errorf("failed to write config file: %w", err)
		}

		log.Info("wrote config file", "path", fullPath)
		buf.Reset()
		fh.Close()
	}

	return nil
}

func CheckFileExists(filePath string) bool {
	_, error := os.Stat(filePath)
	return !errors.Is(error, os.ErrNotExist)
}

// configDir is where taskflow keeps its config, calendar tokens, and the
// default knowledge corpus.
func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+projectName)
}

/*
gatewayFromConfig builds the reasoning provider gateway selected by the
config file, pairing it with the matching API key read at startup.
*/
func gatewayFromConfig() (provider.Gateway, error) {
	backend := viper.GetString("provider.backend")

	return provider.New(provider.Config{
		Backend: backend,
		APIKey:  providerKey(backend),
		Model:   viper.GetString("provider.model"),
		Timeout: viper.GetDuration("provider.timeout"),
	})
}

func providerKey(backend string) string {
	switch backend {
	case "anthropic":
		return anthropicAPIKey
	case "google":
		return googleAPIKey
	case "cohere":
		return cohereAPIKey
	case "deepseek":
		return deepseekAPIKey
	case "ollama":
		return ""
	default:
		return openaiAPIKey
	}
}

/*
corpusFromConfig builds the knowledge corpus store named by
knowledge.store: a local directory or an S3 bucket.
*/
func corpusFromConfig() (stores.Corpus, error) {
	switch viper.GetString("knowledge.store") {
	case "s3":
		return s3store.NewCorpus(s3store.Config{
			Endpoint:  viper.GetString("knowledge.s3.endpoint"),
			AccessKey: viper.GetString("knowledge.s3.access_key"),
			SecretKey: viper.GetString("knowledge.s3.secret_key"),
			Bucket:    viper.GetString("knowledge.s3.bucket"),
			UseSSL:    viper.GetBool("knowledge.s3.use_ssl"),
		})
	default:
		dir := viper.GetString("knowledge.dir")
		if dir == "" {
			dir = filepath.Join(configDir(), "knowledge")
		}

		return stores.NewFileCorpus(dir), nil
	}
}

// agentConfig bundles the adapter credentials gathered at startup with the
// tunables from the config file.
func agentConfig() agents.Config {
	credentials := viper.GetString("calendar.credentials_file")
	if credentials == "" {
		credentials = filepath.Join(configDir(), "credentials.json")
	}

	token := viper.GetString("calendar.token_file")
	if token == "" {
		token = filepath.Join(configDir(), "token.json")
	}

	return agents.Config{
		SlackToken: slackBotToken,
		Twilio: agents.CommunicationConfig{
			AccountSID: twilioAccountSID,
			AuthToken:  twilioAuthToken,
			FromNumber: twilioFromNumber,
		},
		Calendar: agents.CalendarConfig{
			CredentialsFile: credentials,
			TokenFile:       token,
			Interactive:     viper.GetBool("calendar.interactive"),
		},
		SimulatedDelay: viper.GetDuration("agents.simulated_delay"),
	}
}

/*
longRoot contains the detailed help text for the root command.
*/
var longRoot = `
taskflow turns a natural-language prompt into an executable plan and runs it
step by step against real services (Slack, search, calendar, SMS), streaming
progress as JSON events while it goes.
`
