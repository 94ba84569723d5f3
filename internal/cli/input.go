package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MattB543/textpress-matt-test/internal/domain"
)

// parseInput turns a command line argument into a ConvertInput:
// http(s) addresses are fetched by the backend, "-" reads text from stdin,
// anything else is a local file.
func parseInput(arg string, stdin io.Reader) (domain.ConvertInput, error) {
	lower := strings.ToLower(arg)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return domain.ConvertInput{URL: arg}, nil
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return domain.ConvertInput{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return domain.ConvertInput{Text: string(data)}, nil
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			return domain.ConvertInput{}, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return domain.ConvertInput{File: data, FileName: filepath.Base(arg)}, nil
	}
}

func parseInputs(args []string, stdin io.Reader) ([]domain.ConvertInput, error) {
	stdinUsed := false
	inputs := make([]domain.ConvertInput, len(args))
	for i, arg := range args {
		if arg == "-" {
			if stdinUsed {
				return nil, fmt.Errorf("stdin can only be used once")
			}
			stdinUsed = true
		}
		in, err := parseInput(arg, stdin)
		if err != nil {
			return nil, err
		}
		inputs[i] = in
	}
	return inputs, nil
}
