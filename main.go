package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"time"

	"productauth/analyzer"
	"productauth/config"
	"productauth/logging"
	"productauth/signalhandler"
	"productauth/store"
	"productauth/types"
	"productauth/utils"
)

func main() {
	// Set up proper signal handling
	signalhandler.SetupHandler()

	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments()

	command, hasCommand := args["command"]

	// Setup debug logging if enabled
	if _, ok := args["debug"]; ok {
		logPath := "productauth.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
		defer logging.CloseLogger()
	}

	// Check if required arguments are missing
	showUsage := !hasCommand

	if hasCommand && command == "compare" && (args["image1"] == "" || args["image2"] == "") {
		showUsage = true
	}

	if hasCommand && command == "batch" && args["pairs"] == "" {
		showUsage = true
	}

	if showUsage {
		utils.PrintUsage()
		os.Exit(1)
	}

	threshold := 0.0
	if thresholdStr, ok := args["threshold"]; ok {
		parsed, err := utils.ParseThreshold(thresholdStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		} else {
			threshold = parsed
		}
	}

	a := analyzer.New(config.Default())
	defer a.Close()

	var db *store.Store
	if dbPath, ok := args["database"]; ok && dbPath != "" {
		var err error
		db, err = store.Open(dbPath)
		if err != nil {
			log.Fatalf("Error opening comparison database: %v", err)
		}
		defer db.Close()
	}

	switch command {
	case "compare":
		handleCompareCommand(a, db, args, threshold)
	case "batch":
		handleBatchCommand(a, db, args, threshold)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

func handleCompareCommand(a *analyzer.Analyzer, db *store.Store, args map[string]string, threshold float64) {
	path1 := args["image1"]
	path2 := args["image2"]

	startTime := time.Now()
	report := a.Compare(path1, path2, threshold)

	if db != nil {
		if err := db.SaveReport(path1, path2, report); err != nil {
			fmt.Printf("Warning: failed to record comparison: %v\n", err)
		}
	}

	if _, ok := args["json"]; ok {
		printJSON(report)
	} else {
		printReport(report)
	}

	if _, ok := args["verdict"]; ok {
		verdict := a.CounterfeitVerdict(report)
		if _, jsonOut := args["json"]; jsonOut {
			printJSON(verdict)
		} else {
			printVerdict(verdict)
		}
	}

	fmt.Printf("\nTotal comparison time: %v\n", time.Since(startTime))

	if report.Error != "" {
		os.Exit(1)
	}
}

func handleBatchCommand(a *analyzer.Analyzer, db *store.Store, args map[string]string, threshold float64) {
	pairs, err := utils.ParsePairsFile(args["pairs"])
	if err != nil {
		log.Fatalf("Error reading pairs file: %v", err)
	}
	if len(pairs) == 0 {
		log.Fatalf("No comparison pairs found in: %s", args["pairs"])
	}

	fmt.Printf("Starting batch comparison of %d pairs...\n", len(pairs))
	startTime := time.Now()

	result := a.BatchCompare(pairs, threshold)

	if db != nil {
		for i, entry := range result.Comparisons {
			if err := db.SaveReport(pairs[i][0], pairs[i][1], entry.ComparisonReport); err != nil {
				fmt.Printf("Warning: failed to record comparison %d: %v\n", i, err)
			}
		}
	}

	if _, ok := args["json"]; ok {
		printJSON(result)
	} else {
		printBatchResult(result)
	}

	fmt.Printf("\nTotal batch time: %v\n", time.Since(startTime))

	if db != nil {
		if stats, err := db.GetStats(); err == nil {
			fmt.Printf("\nDatabase summary:\n")
			fmt.Printf("- Total comparisons recorded: %d\n", stats.TotalComparisons)
			fmt.Printf("- Matches: %d\n", stats.Matches)
			fmt.Printf("- Errors: %d\n", stats.Errors)
			fmt.Printf("- Average score: %.3f\n", stats.AverageScore)
		}
	}
}

func printReport(report *types.ComparisonReport) {
	if report.Error != "" {
		fmt.Printf("Comparison failed: %s\n", report.Error)
		return
	}

	fmt.Printf("\nSimilarity score: %.3f (%s, threshold %.2f)\n",
		report.SimilarityScore, report.MatchStatus, report.Threshold)

	if report.Analysis != nil {
		fmt.Printf("Interpretation:   %s\n", report.Analysis.Interpretation)
		fmt.Printf("Confidence:       %s\n", report.Analysis.Confidence)
		fmt.Printf("Counterfeit risk: %s\n", report.Analysis.CounterfeitRisk)
		fmt.Printf("Recommendation:   %s\n", report.Analysis.Recommendation)
		fmt.Printf("Suggested action: %s\n", report.Analysis.SuggestedAction)
	}

	fmt.Printf("\nPer-metric scores:\n")
	names := make([]string, 0, len(report.DetailedScores))
	for name := range report.DetailedScores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("- %-6s %.3f (weight %.2f)\n", name, report.DetailedScores[name], report.Weights[name])
	}

	images := []struct {
		label string
		meta  *types.ImageMetadata
	}{
		{"Image 1", report.Image1},
		{"Image 2", report.Image2},
	}
	for _, img := range images {
		label, meta := img.label, img.meta
		if meta == nil {
			continue
		}
		format := meta.Format
		if format == "" {
			format = "unknown format"
		}
		fmt.Printf("\n%s: %s (%s, %d channels, %.1f KB, %s)\n",
			label, meta.Path, meta.Dimensions, meta.Channels, meta.SizeKB, format)
	}
}

func printVerdict(verdict *types.VerdictReport) {
	if verdict.Error != "" {
		fmt.Printf("\nVerdict unavailable: %s\n", verdict.Error)
		return
	}

	fmt.Printf("\nVerdict: %s (confidence: %s)\n", verdict.Verdict, verdict.Confidence)
	fmt.Printf("Reasoning:\n")
	for _, reason := range verdict.Reasoning {
		fmt.Printf("- %s\n", reason)
	}
	fmt.Printf("Recommended actions:\n")
	for _, action := range verdict.RecommendedActions {
		fmt.Printf("- %s\n", action)
	}
}

func printBatchResult(result *types.BatchResult) {
	fmt.Printf("\nBatch completed: %d comparisons, %d matches, %d no-matches, %d errors\n",
		result.TotalComparisons, result.Matches, result.NoMatches, result.Errors)

	for _, entry := range result.Comparisons {
		if entry.Error != "" {
			fmt.Printf("%3d. ERROR: %s\n", entry.PairIndex+1, entry.Error)
			continue
		}
		fmt.Printf("%3d. %.3f %-8s %s vs %s\n",
			entry.PairIndex+1, entry.SimilarityScore, entry.MatchStatus,
			entry.Image1.Path, entry.Image2.Path)
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding JSON output: %v", err)
	}
	fmt.Println(string(data))
}
