package utils

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	args := make(map[string]string)

	// First, identify the command (compare/batch)
	command := ""
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "compare" || os.Args[i] == "batch" {
			command = os.Args[i]
			commandIndex = i
			break
		}
	}

	if command != "" {
		args["command"] = command
	}

	// Process all arguments, skipping the command
	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}

		arg := os.Args[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
				args[flagName] = "true"
			} else {
				args[flagName] = os.Args[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s compare --image1=PATH --image2=PATH [--threshold=VALUE] [--json] [--verdict] [--database=PATH] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s batch --pairs=FILE [--threshold=VALUE] [--json] [--database=PATH] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --image1      : Path to the reference (known authentic) image\n")
	fmt.Printf("  --image2      : Path to the candidate image\n")
	fmt.Printf("  --pairs       : File with one comparison per line, formatted as 'path1,path2'\n")
	fmt.Printf("  --threshold   : Match threshold (0.0-1.0, default: 0.6)\n")
	fmt.Printf("  --json        : Print the full report as JSON\n")
	fmt.Printf("  --verdict     : Also print the counterfeit verdict\n")
	fmt.Printf("  --database    : Record comparisons in a sqlite database at PATH\n")
	fmt.Printf("  --debug       : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile     : Specify custom log file path (default: productauth.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s compare --image1=reference.jpg --image2=listing.jpg --verdict\n", os.Args[0])
	fmt.Printf("  %s batch --pairs=pairs.txt --threshold=0.65 --json\n", os.Args[0])
}

// ParseThreshold parses and validates the threshold value from string
func ParseThreshold(thresholdStr string) (float64, error) {
	parsedThreshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil || parsedThreshold < 0 || parsedThreshold > 1 {
		return 0.6, fmt.Errorf("invalid threshold value '%s', using default (0.6)", thresholdStr)
	}
	return parsedThreshold, nil
}

// ParsePairsFile reads a batch file with one "path1,path2" pair per line.
// Blank lines and lines starting with # are skipped.
func ParsePairsFile(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open pairs file: %v", err)
	}
	defer f.Close()

	var pairs [][2]string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid pair on line %d: %q", lineNo, line)
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read pairs file: %v", err)
	}

	return pairs, nil
}
