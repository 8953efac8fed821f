package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"iams2rf/internal/catalog"
	"iams2rf/internal/config"
	"iams2rf/internal/connectors"
	"iams2rf/internal/listener"
	"iams2rf/internal/logging"
	"iams2rf/internal/metrics"
	"iams2rf/internal/pipeline"
	"iams2rf/internal/snapshot"
	"iams2rf/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Args[1], os.Args[2:])
	cancel()
	must(err)
}

// run dispatches one command. Commands return their errors so deferred
// closes run before the process exits.
func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	m := metrics.New()
	switch cmd {
	case "snapshot:convert":
		return runConvert(ctx, cfg, m, cmd, args)
	case "export:rf":
		return runExport(ctx, cfg, m, cmd, args)
	case "db:dump":
		return runDump(ctx, cfg, cmd, args)
	case "requests:fetch":
		return runFetch(cfg, cmd, args)
	case "requests:process":
		return runProcess(ctx, cfg, m, cmd, args)
	case "requests:listen":
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		return listener.NewService(db, cfg, newLogger(cfg, false), m).Run(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runConvert(ctx context.Context, cfg config.Config, m *metrics.Metrics, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	snap := fs.String("snapshot", "", "IAMS snapshot (.csv)")
	dbPath := fs.String("db", "", "output database (.db), default next to the snapshot")
	dump := fs.Bool("dump", false, "write a text dump of every table")
	debug := fs.Bool("debug", false, "debug logging")
	enc := fs.String("encoding", cfg.SnapshotEncoding, "snapshot encoding utf-16le|utf-8")
	_ = fs.Parse(args)

	if strings.TrimSpace(*snap) == "" {
		return fmt.Errorf("--snapshot is required")
	}
	if err := pipeline.CheckExtension(*snap, ".csv"); err != nil {
		return err
	}
	if _, err := os.Stat(*snap); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if *dbPath == "" {
		*dbPath = strings.TrimSuffix(*snap, filepath.Ext(*snap)) + ".db"
	}
	if err := pipeline.CheckExtension(*dbPath, ".db"); err != nil {
		return err
	}

	log := newLogger(cfg, *debug)
	src, err := snapshot.NewFileSource(*snap, *enc)
	if err != nil {
		return err
	}
	db, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := pipeline.ConvertOptions{SourceName: *snap}
	if *dump {
		opts.DumpDir = filepath.Join(filepath.Dir(*dbPath), "dump")
	}
	res, err := pipeline.NewConversionService(db, cfg, log, m).Convert(ctx, src, opts)
	if err != nil {
		return err
	}
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		return err
	}
	fmt.Printf("conversion done trace=%s authorities=%d records=%d skipped=%d db=%s\n",
		res.TraceID, res.Authorities, res.Records, res.Skipped, *dbPath)
	return nil
}

func runExport(ctx context.Context, cfg config.Config, m *metrics.Metrics, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dbPath := fs.String("db", cfg.DBPath, "converted database (.db)")
	request := fs.String("request", "", "request file (.txt|.eml|.html|.pdf|.xlsx)")
	out := fs.String("out", cfg.OutputDir, "output directory")
	format := fs.String("format", cfg.ExportFormat, "csv|xlsx|both")
	debug := fs.Bool("debug", false, "debug logging")
	var flags pipeline.ExportFlags
	fs.StringVar(&flags.Preset, "preset", "default", "column preset default|all")
	fs.StringVar(&flags.Fields, "fields", "", "column codes, e.g. AA|TT")
	fs.StringVar(&flags.Files, "files", "", "output files r,t,n,s, e.g. rtns")
	fs.StringVar(&flags.Languages, "lang", "", "languages, e.g. eng|fre")
	fs.StringVar(&flags.Terms, "text", "", "free-text terms, e.g. a|b")
	fs.StringVar(&flags.From, "from", "", "earliest year")
	fs.StringVar(&flags.To, "to", "", "latest year")
	_ = fs.Parse(args)

	if err := existingDB(*dbPath); err != nil {
		return err
	}

	var (
		spec pipeline.ExportSpec
		err  error
	)
	if *request != "" {
		spec, err = pipeline.LoadRequest(catalog.Fields(), *request)
	} else {
		spec, err = flags.Spec(catalog.Fields())
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	db, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := pipeline.NewExportService(db, cfg, newLogger(cfg, *debug), m).Export(ctx, spec, *out, *format)
	if err != nil {
		return err
	}
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		return err
	}
	fmt.Printf("export done matched=%d denied=%d files=%d out=%s\n", res.Matched, res.Denied, len(res.Paths), *out)
	return nil
}

func runDump(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dbPath := fs.String("db", cfg.DBPath, "converted database (.db)")
	out := fs.String("out", "", "dump directory, default next to the database")
	_ = fs.Parse(args)

	if err := existingDB(*dbPath); err != nil {
		return err
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dbPath), "dump")
	}
	db, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := db.DumpTables(ctx, *out)
	if err != nil {
		return err
	}
	for table, n := range counts {
		fmt.Printf("dumped %s rows=%d\n", table, n)
	}
	return nil
}

func runFetch(cfg config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	provider := fs.String("provider", cfg.ListenerProvider, "gmail|imap")
	mailbox := fs.String("mailbox", cfg.ListenerMailbox, "mailbox or label")
	max := fs.Int("max", cfg.ListenerFetchMax, "max messages")
	_ = fs.Parse(args)

	conn, err := connectors.New(cfg, *provider)
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := connectors.NewFetchService(db, cfg.RequestsDir, conn, newLogger(cfg, false)).FetchAndStore(*mailbox, *max)
	if err != nil {
		return err
	}
	fmt.Printf("request fetch done provider=%s fetched=%d stored=%d\n", *provider, res.Fetched, res.Stored)
	return nil
}

func runProcess(ctx context.Context, cfg config.Config, m *metrics.Metrics, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	provider := fs.String("provider", "", "only requests from gmail|imap")
	batch := fs.Int("batch", cfg.ListenerProcessBatch, "batch size")
	debug := fs.Bool("debug", false, "debug logging")
	_ = fs.Parse(args)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	processed, exported, err := pipeline.NewRequestService(db, cfg, newLogger(cfg, *debug), m).ProcessPending(ctx, *batch, *provider)
	if err != nil {
		return err
	}
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		return err
	}
	fmt.Printf("processed pending requests=%d exported=%d\n", processed, exported)
	return nil
}

func existingDB(path string) error {
	if err := pipeline.CheckExtension(path, ".db"); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

func newLogger(cfg config.Config, debug bool) zerolog.Logger {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, Pretty: cfg.LogPretty})
}

func usage() {
	fmt.Println("usage: iams2rf <command>")
	fmt.Println("commands:")
	fmt.Println("  snapshot:convert --snapshot=IAMS.csv [--db=IAMS.db] [--dump] [--debug] [--encoding=utf-16le]")
	fmt.Println("  export:rf [--db=IAMS.db] [--request=request.eml] [--out=./out] [--preset=default|all]")
	fmt.Println("            [--fields=AA|TT] [--files=rtns] [--lang=eng|fre] [--text=a|b] [--from=1900] [--to=1950]")
	fmt.Println("            [--format=csv|xlsx|both]")
	fmt.Println("  db:dump [--db=IAMS.db] [--out=./dump]")
	fmt.Println("  requests:fetch --provider=gmail|imap --mailbox=INBOX --max=20")
	fmt.Println("  requests:process [--provider=gmail|imap] [--batch=20]")
	fmt.Println("  requests:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
