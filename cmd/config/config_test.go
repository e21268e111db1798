package config

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/snowxfer/pkg/config"
	"github.com/sidkik/snowxfer/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                                                 string
		helpString, prompt, defaultAnswer, currAnswer, stdin string
		expPrompt, expResult                                 string
	}{
		{
			name:       "No default or current answer",
			helpString: "explanation",
			prompt:     "prompt",
			stdin:      "user input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:       "Current answer only, chose current answer",
			helpString: "explanation",
			prompt:     "prompt",
			currAnswer: "current answer",
			stdin:      "1\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. current answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "current answer",
		},
		{
			name:          "Default answer only, enter manually",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			stdin: "2\n" +
				"user input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "Same default answer and current answer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			currAnswer:    "default answer",
			stdin:         "1\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "default answer",
		},
		{
			name:          "Empty response picks the default",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			currAnswer:    "two",
			stdin:         "\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. two\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "one",
		},
		{
			name:          "Different default answer and current answer, chose current answer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin:         "2\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "current answer",
		},
		{
			name:          "Invalid input",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin: "invalid input\n" +
				"4\n" +
				"1\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: " +
				"Please choose one [1-3]: " +
				"Please choose one [1-3]: \n",
			expResult: "default answer",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stdout = out

			reader := bufio.NewReader(strings.NewReader(test.stdin))
			resp, err := promptUser(reader, test.helpString, test.prompt,
				test.defaultAnswer, test.currAnswer)
			require.NoError(t, err)
			assert.Equal(t, test.expResult, resp)
			assert.Equal(t, test.expPrompt, out.String())
		})
	}
}

func TestBucketValidation(t *testing.T) {
	tests := []struct {
		input         string
		expInputValid bool
	}{
		{"pami-dance-storage", true},
		{"logs.example-1", true},
		{"ab", false},
		{"Uppercase", false},
		{"-leading-hyphen", false},
		{"trailing.", false},
		{"double..dot", false},
		{"under_score", false},
		{strings.Repeat("a", 64), false},
	}

	for _, test := range tests {
		_, ok := bucketValidationFn(test.input)
		assert.Equal(t, test.expInputValid, ok, test.input)
	}
}

func TestPrefixValidation(t *testing.T) {
	for _, prefix := range []string{"MPS-snowball", "nested/prefix"} {
		_, ok := prefixValidationFn(prefix)
		assert.True(t, ok, prefix)
	}
	for _, prefix := range []string{"", "/leading", "trailing/"} {
		_, ok := prefixValidationFn(prefix)
		assert.False(t, ok, prefix)
	}
}

func TestGenerateConfig(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{Profile: "snowcli-0123456789ab", IP: "192.168.1.10"}, nil
	}
	stdout = bytes.NewBuffer(nil)
	stdin = strings.NewReader(
		// Keep the default bucket.
		"1\n" +
			// An invalid prefix is asked for again.
			"2\n/bad\n2\nMPS-snowball-2\n")

	cfg, err := generateConfig(config.User{ArchivePrefix: "MPS-deeparchive-2"})
	require.NoError(t, err)
	assert.Equal(t, config.User{
		Profile:        "snowcli-0123456789ab",
		IP:             "192.168.1.10",
		Bucket:         "pami-dance-storage",
		SnowballPrefix: "MPS-snowball-2",
		ArchivePrefix:  "MPS-deeparchive-2",
	}, cfg)
}

func TestGenerateConfigWithoutCurrentConfig(t *testing.T) {
	parseUserConfig = func() (config.User, error) {
		return config.User{}, errors.FileNotFound{Path: "~/.snowxfer.yaml"}
	}
	stdout = bytes.NewBuffer(nil)
	stdin = strings.NewReader("")

	cfg, err := generateConfig(config.User{
		Bucket:         "bucket",
		SnowballPrefix: "snowball",
		ArchivePrefix:  "archive",
	})
	require.NoError(t, err)
	assert.Equal(t, config.User{
		Bucket:         "bucket",
		SnowballPrefix: "snowball",
		ArchivePrefix:  "archive",
	}, cfg)
}
