package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	stdin           io.Reader = os.Stdin
	parseUserConfig           = config.ParseUser
	writeUserConfig           = config.WriteUser
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.User
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the snowxfer user configuration",
		Long: "Setup the destination bucket and prefixes in ~/.snowxfer.yaml.\n" +
			"Settings that aren't passed as flags are prompted for.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := setupConfig(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.Bucket, "bucket", "",
		"Set the destination bucket in the config. "+
			"Optional: If not set, `snowxfer config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.SnowballPrefix, "snowball-prefix", "",
		"Set the prefix of Snowball Edge transfers in the config. "+
			"Optional: If not set, `snowxfer config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.ArchivePrefix, "archive-prefix", "",
		"Set the prefix of archive transfers in the config. "+
			"Optional: If not set, `snowxfer config` will interactively prompt.")

	type getterSpec struct {
		use, short string
		fn         func(config.User) string
	}

	getters := []getterSpec{
		{
			use:   "get-profile",
			short: "Get the AWS CLI profile saved by `snowxfer configure`",
			fn:    func(cfg config.User) string { return cfg.Profile },
		},
		{
			use:   "get-ip",
			short: "Get the device IP saved by `snowxfer configure`",
			fn:    func(cfg config.User) string { return cfg.IP },
		},
		{
			use:   "get-bucket",
			short: "Get the configured destination bucket",
			fn:    func(cfg config.User) string { return cfg.Bucket },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseUserConfig()
				if err != nil {
					util.HandleFatalError(errors.WithContext(err, "read config"))
				}
				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

func setupConfig(cliOpts config.User) error {
	cfg, err := generateConfig(cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := config.GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "get user config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func bucketValidationFn(bucket string) (string, bool) {
	if !bucketNamePattern.MatchString(bucket) || strings.Contains(bucket, "..") {
		return "Bucket names must be 3 to 63 characters long, and may only " +
			"contain lowercase letters, numbers, periods and hyphens. " +
			"They must start and end with a letter or number.", false
	}
	return "", true
}

func prefixValidationFn(prefix string) (string, bool) {
	if prefix == "" || strings.HasPrefix(prefix, "/") || strings.HasSuffix(prefix, "/") {
		return "The prefix must not be empty, or start or end with `/`.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig asks the user for every setting that wasn't passed as a
// flag. The settings written by `snowxfer configure` are carried over from
// the current config.
func generateConfig(cliOpts config.User) (config.User, error) {
	defaults := config.Defaults()
	currConfig, err := parseUserConfig()
	if err != nil {
		currConfig = config.User{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := currConfig
	var prompts []prompt
	if cliOpts.Bucket == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the S3 bucket that drives are transferred to.",
			prompt:        "Destination bucket",
			defaultAnswer: defaults.Bucket,
			currAnswer:    currConfig.Bucket,
			field:         &cfg.Bucket,
			validationFn:  bucketValidationFn,
		})
	} else {
		cfg.Bucket = cliOpts.Bucket
	}

	if cliOpts.SnowballPrefix == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the prefix for drives transferred with a Snowball Edge.\n" +
				"Each drive is stored under <prefix>/<drive name>.",
			prompt:        "Snowball Edge prefix",
			defaultAnswer: defaults.SnowballPrefix,
			currAnswer:    currConfig.SnowballPrefix,
			field:         &cfg.SnowballPrefix,
			validationFn:  prefixValidationFn,
		})
	} else {
		cfg.SnowballPrefix = cliOpts.SnowballPrefix
	}

	if cliOpts.ArchivePrefix == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the prefix for drives uploaded directly to the archive tier.\n" +
				"Each drive is stored under <prefix>/<drive name>.",
			prompt:        "Archive prefix",
			defaultAnswer: defaults.ArchivePrefix,
			currAnswer:    currConfig.ArchivePrefix,
			field:         &cfg.ArchivePrefix,
			validationFn:  prefixValidationFn,
		})
	} else {
		cfg.ArchivePrefix = cliOpts.ArchivePrefix
	}

	reader := bufio.NewReader(stdin)
	for _, prompt := range prompts {
		for {
			resp, err := promptUser(reader, prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.User{}, errors.WithContext(err, "read response")
			}

			msg, ok := prompt.validationFn(resp)
			if ok {
				*prompt.field = resp
				break
			}
			fmt.Fprintln(stdout, msg)
		}
	}

	return cfg, nil
}

// promptUser offers the default and current answers as numbered choices, and
// falls back to reading a free-form answer.
func promptUser(reader *bufio.Reader, helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	defer fmt.Fprintln(stdout)

	var options []string
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if len(options) > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option += " (recommended)"
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		choice, err := readChoice(reader, len(options))
		if err != nil {
			return "", err
		}
		if choice != len(options) {
			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// readChoice reads a number between 1 and n. An empty answer picks the first
// option.
func readChoice(reader *bufio.Reader, n int) (int, error) {
	for {
		fmt.Fprintf(stdout, "Please choose one [1-%d]: ", n)
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return 1, nil
		}

		choice, err := strconv.Atoi(line)
		if err == nil && choice >= 1 && choice <= n {
			return choice, nil
		}
	}
}
