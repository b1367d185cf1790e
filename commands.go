package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/insightdelivered/statement-ventilation/internal/api"
	"github.com/insightdelivered/statement-ventilation/internal/batch"
	"github.com/insightdelivered/statement-ventilation/internal/codec"
	"github.com/insightdelivered/statement-ventilation/internal/extractor"
	"github.com/insightdelivered/statement-ventilation/internal/logger"
	"github.com/insightdelivered/statement-ventilation/internal/metrics"
	"github.com/insightdelivered/statement-ventilation/internal/models"
	"github.com/insightdelivered/statement-ventilation/internal/suggest"
	"github.com/insightdelivered/statement-ventilation/internal/ventilation"
	"github.com/insightdelivered/statement-ventilation/internal/writer"
)

type ParseCmd struct {
	Paths     []string `arg:"" name:"path" help:"Statement files or directories (.pdf, .txt)." type:"path"`
	Out       string   `short:"o" help:"Output file; .json writes JSON, anything else YAML." default:"releves.yml"`
	CSV       string   `help:"Also write the transactions to this CSV file."`
	Header    bool     `help:"Include statement metadata rows in the CSV." default:"true" negatable:""`
	Template  string   `short:"t" help:"Statement template to use instead of detecting it."`
	Workers   int      `short:"w" help:"Documents parsed in parallel (default from config)."`
	OCR       bool     `help:"Fall back to Tesseract OCR for scanned PDFs."`
	KeepGoing bool     `help:"Write the statements that parsed even when other documents failed."`
}

func (c *ParseCmd) Run(app *App) error {
	cfg := app.Config
	log := app.Log.With().Str("command", "parse").Logger()

	extOpts := []extractor.Option{extractor.WithLogger(log)}
	if c.OCR || cfg.Parse.OCR {
		if extractor.OCRAvailable() {
			extOpts = append(extOpts, extractor.WithOCR(cfg.Parse.OCRLanguage))
		} else {
			log.Warn().Msg("OCR requested but pdftoppm or tesseract is not installed")
		}
	}

	workers := c.Workers
	if workers < 1 {
		workers = cfg.Parse.Workers
	}
	template := c.Template
	if template == "" {
		template = cfg.Parse.Template
	}

	// Logs would tear the progress bar; keep them to warnings while it runs.
	quiet := log.Level(max(log.GetLevel(), zerolog.WarnLevel))

	var bar *progressbar.ProgressBar
	runner, err := batch.New(extractor.New(extOpts...), app.Templates,
		batch.WithWorkers(workers),
		batch.WithTemplate(template),
		batch.WithLogger(quiet),
		batch.WithProgress(func(string, error) { _ = bar.Add(1) }),
	)
	if err != nil {
		return err
	}

	files, err := runner.Expand(c.Paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no .pdf or .txt documents found")
	}

	bar = progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Parsing statements"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	report, err := runner.Run(app.Ctx, files)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	for _, f := range report.Failures {
		log.Error().Err(f.Err).Str("path", f.Path).Msg("document failed")
	}
	if len(report.Failures) > 0 && !c.KeepGoing {
		return fmt.Errorf("nothing written: %w", report.Err())
	}
	if len(report.Statements) == 0 {
		return errors.New("no statement could be parsed")
	}

	if err := codec.Save(c.Out, report.Statements); err != nil {
		return err
	}
	if c.CSV != "" {
		w := &writer.CSVWriter{IncludeHeader: c.Header}
		if err := w.WriteToFile(c.CSV, report.Statements); err != nil {
			return err
		}
	}

	var count int
	for _, st := range report.Statements {
		count += len(st.Transactions)
	}
	log.Info().
		Int("statements", len(report.Statements)).
		Int("transactions", count).
		Int("failed", len(report.Failures)).
		Str("out", c.Out).
		Msg("statements written")
	return nil
}

type VentilateCmd struct {
	Statements string `arg:"" help:"Statements file written by the parse command." type:"existingfile"`
	Spec       string `arg:"" help:"Category spec file." type:"existingfile"`
	Out        string `short:"o" help:"Result file; .json writes JSON, anything else YAML." default:"ventilation.yml"`
	Markdown   string `help:"Write a Markdown report with a Mermaid pie chart to this file."`
	XLSX       string `name:"xlsx" help:"Write an Excel workbook to this file."`
}

func (c *VentilateCmd) Run(app *App) error {
	log := app.Log.With().Str("command", "ventilate").Logger()

	res, _, err := runVentilation(app, c.Statements, c.Spec)
	if err != nil {
		return err
	}

	if err := codec.Save(c.Out, res); err != nil {
		return err
	}
	if c.Markdown != "" {
		if err := (&writer.MarkdownWriter{}).WriteToFile(c.Markdown, res); err != nil {
			return err
		}
	}
	if c.XLSX != "" {
		if err := (&writer.XLSXWriter{}).WriteToFile(c.XLSX, res); err != nil {
			return err
		}
	}

	printSummary(res)
	log.Info().Str("out", c.Out).Msg("ventilation written")
	return nil
}

type SuggestCmd struct {
	Statements string `arg:"" help:"Statements file written by the parse command." type:"existingfile"`
	Spec       string `arg:"" help:"Category spec file." type:"existingfile"`
	Limit      int    `short:"n" help:"Maximum number of suggestions; 0 for all." default:"20"`
	Apply      string `help:"Write the spec with the suggested patterns added to this file."`
}

func (c *SuggestCmd) Run(app *App) error {
	log := app.Log.With().Str("command", "suggest").Logger()

	res, statements, err := runVentilation(app, c.Statements, c.Spec)
	if err != nil {
		return err
	}
	if len(res.UnassignedTransactions) == 0 {
		fmt.Println("No unassigned spending.")
		return nil
	}

	suggestions := suggest.Suggest(res, suggest.DefaultRules(), c.Limit)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tPATTERN\tCOUNT\tAMOUNT\tEXAMPLE")
	for _, s := range suggestions {
		name := s.Category
		if !s.Exists {
			name += " (new)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", name, s.Pattern, s.Count, s.Amount, s.Examples[0])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if c.Apply != "" {
		updated := suggest.Apply(res.Spec, suggestions)
		if _, err := ventilation.Ventilate(updated, statements, ventilation.WithLogger(log)); err != nil {
			logAmbiguity(log, err)
			return fmt.Errorf("updated spec does not ventilate the statements: %w", err)
		}
		if err := codec.Save(c.Apply, updated); err != nil {
			return err
		}
		log.Info().Int("suggestions", len(suggestions)).Str("out", c.Apply).Msg("updated spec written")
	}
	return nil
}

type ServeCmd struct {
	Listen string `env:"LISTEN_ADDRESS" help:"${env} - Address to listen on (default from config)."`
}

func (c *ServeCmd) Run(app *App) error {
	cfg := app.Config
	listen := c.Listen
	if listen == "" {
		listen = cfg.Server.Listen
	}
	log := logger.NewJSON(os.Stdout, cfg.LogLevel).With().Str("service", AppName).Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	extOpts := []extractor.Option{extractor.WithLogger(log)}
	if cfg.Parse.OCR && extractor.OCRAvailable() {
		extOpts = append(extOpts, extractor.WithOCR(cfg.Parse.OCRLanguage))
	}

	h := &api.Handler{
		Templates:   app.Templates,
		Extractor:   extractor.New(extOpts...),
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		MetricsPath: cfg.Server.MetricsPath,
		StaticDir:   cfg.Server.StaticDir,
		Version:     version,
		Log:         log,
	}
	server := api.NewApp(h, cfg.Server.BodyLimitMB)

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("listen", listen).Str("metrics", cfg.Server.MetricsPath).Msg("Starting HTTP server")
		errs <- server.Listen(listen)
	}()

	select {
	case err := <-errs:
		return err
	case <-app.Ctx.Done():
	}
	log.Info().Msg("Shutdown Signal Received")
	if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
		return err
	}
	log.Info().Msg("Shutdown Complete; Exiting...")
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("%s v%s\n", AppName, version)
	return nil
}

func runVentilation(app *App, statementsPath, specPath string) (*models.VentilationResult, []models.Statement, error) {
	statements, err := codec.LoadStatements(statementsPath)
	if err != nil {
		return nil, nil, err
	}
	spec, err := codec.LoadSpec(specPath)
	if err != nil {
		return nil, nil, err
	}

	res, err := ventilation.Ventilate(spec, statements, ventilation.WithLogger(app.Log))
	logAmbiguity(app.Log, err)
	return res, statements, err
}

func logAmbiguity(log zerolog.Logger, err error) {
	var amb *ventilation.AmbiguousError
	if errors.As(err, &amb) {
		log.Error().
			Str("document", amb.Document).
			Str("description", amb.Transaction.Description).
			Strs("categories", amb.Categories()).
			Msg("make the patterns of these categories disjoint")
	}
}

func printSummary(res *models.VentilationResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Ventilation: %s\t\n", res.Spec.Name)
	for _, ct := range res.Ranked() {
		name := ct.Name
		if ct.Ignore {
			name += " (ignored)"
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", name, ct.Amount)
	}
	fmt.Fprintf(tw, "%s\t%s\t\n", writer.UnassignedLabel, res.Unassigned)
	fmt.Fprintf(tw, "Total\t%s\t\n", res.Assigned()+res.Unassigned)
	_ = tw.Flush()
}
