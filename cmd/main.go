// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/term"

	"custodia/internal/config"
	"custodia/internal/detect"
	"custodia/internal/detect/creditcard"
	"custodia/internal/detect/email"
	"custodia/internal/detect/phone"
	"custodia/internal/detect/ssn"
	"custodia/internal/document"
	"custodia/internal/document/pdfdoc"
	"custodia/internal/document/textdoc"
	"custodia/internal/extract"
	"custodia/internal/extract/exifmeta"
	"custodia/internal/extract/pdftext"
	"custodia/internal/extract/plaintext"
	"custodia/internal/ledger"
	"custodia/internal/observability"
	"custodia/internal/parallel"
	"custodia/internal/planstore"
	"custodia/internal/redaction"
	"custodia/internal/report"
	"custodia/internal/version"
)

// Exit codes: 0 success, 1 operational error, 2 integrity failure
// (ledger verification failed or a plan was refused on hash mismatch).
const (
	exitOK        = 0
	exitError     = 1
	exitIntegrity = 2
)

func main() {
	inputFile := flag.String("file", "", "Path to the input file, directory, or glob pattern")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	applyFlag := flag.Bool("apply", false, "Apply each created plan immediately after planning")
	applyPlan := flag.String("apply-plan", "", "Apply an existing plan by ID")
	applyOutput := flag.String("output", "", "Output path when applying a single plan with -apply-plan")
	force := flag.Bool("force", false, "Apply even when the document changed after planning")
	verifyLedger := flag.Bool("verify-ledger", false, "Verify the audit ledger chain and exit")
	scanOnly := flag.Bool("scan", false, "Detect and report findings without writing plans or ledger entries")
	checksToRun := flag.String("checks", "", "Entity types to detect: SSN, EMAIL, PHONE, CREDIT_CARD, or 'all'")
	customTerms := flag.String("terms", "", "Comma-separated custom terms to detect and redact")
	outputDir := flag.String("output-dir", "", "Directory where redacted files are written")
	workers := flag.Int("workers", 0, "Number of parallel workers (default from config)")
	recursive := flag.Bool("recursive", false, "Recursively process directories")
	verbose := flag.Bool("verbose", false, "Display per-action detail")
	debug := flag.Bool("debug", false, "Enable debug logging of processing flow")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(exitOK)
	}

	cfgPath := *configFile
	if cfgPath == "" {
		cfgPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fatalf("config: %v", err)
	}

	if *listProfiles {
		names := cfg.ListProfiles()
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-12s %s\n", name, cfg.Profiles[name].Description)
		}
		os.Exit(exitOK)
	}

	if *profileName != "" {
		if err := cfg.ApplyProfile(*profileName); err != nil {
			fatalf("%v", err)
		}
	}
	if *checksToRun != "" {
		cfg.Defaults.Checks = *checksToRun
	}
	if *customTerms != "" {
		cfg.Detection.CustomTerms = splitList(*customTerms)
	}
	if *outputDir != "" {
		cfg.Redaction.OutputDir = *outputDir
	}
	if *workers > 0 {
		cfg.Defaults.Workers = *workers
	}
	useColor := !*noColor && !cfg.Defaults.NoColor && term.IsTerminal(int(os.Stdout.Fd()))

	level := observability.ObservabilityOff
	if *verbose || cfg.Defaults.Verbose {
		level = observability.ObservabilityMetrics
	}
	if *debug || cfg.Defaults.Debug {
		level = observability.ObservabilityDebug
	}
	observer := observability.NewStandardObserver(level, os.Stderr)
	reporter := report.New(os.Stdout, !useColor, *verbose || cfg.Defaults.Verbose)

	led, err := ledger.Open(cfg.Ledger.Path, ledger.Options{
		KeyPath:  cfg.Ledger.KeyPath,
		Observer: observer,
	})
	if err != nil {
		fatalf("opening ledger: %v", err)
	}
	defer led.Close()

	if *verifyLedger {
		result, err := led.Verify()
		if err != nil {
			fatalf("verifying ledger: %v", err)
		}
		reporter.VerifySummary(led.Path(), result)
		if !result.OK {
			os.Exit(exitIntegrity)
		}
		os.Exit(exitOK)
	}

	store, err := planstore.Open(cfg.Plans.Dir, cfg.Plans.KeyPath)
	if err != nil {
		fatalf("opening plan store: %v", err)
	}

	extractors := extract.NewRegistry(
		pdftext.NewExtractor(),
		exifmeta.NewExtractor(),
		plaintext.NewExtractor(),
	)
	editors := document.NewRegistry(
		pdfdoc.New(),
		textdoc.New(),
	)

	analyzers, entityFilter, err := buildAnalyzers(cfg.Defaults.Checks, cfg.Detection.CustomTerms)
	if err != nil {
		fatalf("%v", err)
	}
	detector, err := detect.NewDetector(analyzers, observer)
	if err != nil {
		fatalf("%v", err)
	}

	planner := redaction.NewPlanner(extractors, detector, store, led, observer)
	applier := redaction.NewApplier(extractors, editors, store, led, observer)

	if *applyPlan != "" {
		out := *applyOutput
		if out == "" {
			fatalf("-apply-plan requires -output")
		}
		result, err := applier.Apply(*applyPlan, out, *force, "")
		if err != nil {
			var mismatch *redaction.PlanHashMismatchError
			if errors.As(err, &mismatch) {
				fmt.Fprintf(os.Stderr, "refused: %v\n", mismatch)
				os.Exit(exitIntegrity)
			}
			fatalf("applying plan: %v", err)
		}
		reporter.ApplySummary(result)
		os.Exit(exitOK)
	}

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "no input: pass -file, -apply-plan, or -verify-ledger")
		flag.Usage()
		os.Exit(exitError)
	}

	files, err := collectFiles(extractors, *inputFile, *recursive || cfg.Defaults.Recursive)
	if err != nil {
		fatalf("%v", err)
	}
	if len(files) == 0 {
		fatalf("no supported files found at %s", *inputFile)
	}

	if *scanOnly {
		failures := 0
		for _, path := range files {
			content, err := extractors.Extract(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
				failures++
				continue
			}
			findings, err := detector.Detect(content.Text, content.Pages, entityFilter)
			if err != nil {
				fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
				failures++
				continue
			}
			reporter.ScanSummary(path, findings)
			for i := range findings {
				findings[i].Clear()
			}
		}
		if failures > 0 {
			os.Exit(exitError)
		}
		os.Exit(exitOK)
	}

	jobConfig := &parallel.JobConfig{
		Apply:        *applyFlag,
		Force:        *force,
		OutputDir:    cfg.Redaction.OutputDir,
		EntityFilter: entityFilter,
	}
	if jobConfig.Apply {
		if err := os.MkdirAll(jobConfig.OutputDir, 0700); err != nil {
			fatalf("creating output directory: %v", err)
		}
	}

	poolSize := cfg.Defaults.Workers
	if poolSize < 1 {
		poolSize = 1
	}
	pool := parallel.NewWorkerPool(poolSize, planner, applier, observer)
	pool.Start()
	go func() {
		for _, path := range files {
			pool.Submit(&parallel.Job{FilePath: path, Config: jobConfig})
		}
		pool.CloseJobs()
	}()

	done := make(chan struct{})
	failures := 0
	go func() {
		for result := range pool.Results() {
			reporter.JobResult(result)
			if result.Error != nil {
				failures++
			}
		}
		close(done)
	}()
	pool.Stop()
	<-done

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failures, len(files))
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}

// buildAnalyzers assembles the analyzer set for a checks expression and
// returns it with the matching entity filter. Custom terms always run
// when configured.
func buildAnalyzers(checks string, terms []string) ([]detect.Analyzer, []string, error) {
	available := map[string]func() detect.Analyzer{
		detect.EntitySSN:        func() detect.Analyzer { return ssn.NewAnalyzer() },
		detect.EntityEmail:      func() detect.Analyzer { return email.NewAnalyzer() },
		detect.EntityPhone:      func() detect.Analyzer { return phone.NewAnalyzer() },
		detect.EntityCreditCard: func() detect.Analyzer { return creditcard.NewAnalyzer() },
	}

	var wanted []string
	if checks == "" || strings.EqualFold(checks, "all") {
		wanted = []string{detect.EntitySSN, detect.EntityEmail, detect.EntityPhone, detect.EntityCreditCard}
	} else {
		for _, c := range splitList(checks) {
			name := strings.ToUpper(c)
			if _, ok := available[name]; !ok && name != detect.EntityCustom {
				return nil, nil, fmt.Errorf("unknown check %q", c)
			}
			wanted = append(wanted, name)
		}
	}

	var analyzers []detect.Analyzer
	var filter []string
	for _, name := range wanted {
		if build, ok := available[name]; ok {
			analyzers = append(analyzers, build())
			filter = append(filter, name)
		}
	}
	if len(terms) > 0 {
		analyzers = append(analyzers, detect.NewCustomTermAnalyzer(terms))
		filter = append(filter, detect.EntityCustom)
	}
	if len(analyzers) == 0 {
		return nil, nil, fmt.Errorf("no checks selected")
	}
	return analyzers, filter, nil
}

// collectFiles expands a file, directory, or glob into the list of
// supported files to process.
func collectFiles(extractors *extract.Registry, input string, recursive bool) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		// Not a plain path; try it as a glob.
		matches, globErr := filepath.Glob(input)
		if globErr != nil || len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", input)
		}
		var files []string
		for _, m := range matches {
			if supported(extractors, m) {
				files = append(files, m)
			}
		}
		return files, nil
	}

	if !info.IsDir() {
		if !supported(extractors, input) {
			return nil, fmt.Errorf("unsupported file type: %s", input)
		}
		return []string{input}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(input, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && supported(extractors, path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return files, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(input, entry.Name())
		if supported(extractors, path) {
			files = append(files, path)
		}
	}
	return files, nil
}

func supported(extractors *extract.Registry, path string) bool {
	_, err := extractors.ForFile(path)
	return err == nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(exitError)
}
