package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"chandlery/internal/catalog"
	"chandlery/internal/config"
	"chandlery/internal/connectors"
	"chandlery/internal/pipeline"
	"chandlery/internal/storage"
	"chandlery/internal/templates"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:initial-sync":
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.InitialSync(context.Background())
		must(err)
		fmt.Printf("initial sync complete: %d products\n", count)
	case "catalog:incremental-sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		mode := fs.String("mode", "", "hours|day")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*mode) == "" {
			must(fmt.Errorf("--mode is required"))
		}
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.IncrementalSync(context.Background(), *mode)
		must(err)
		fmt.Printf("incremental sync complete mode=%s products=%d\n", *mode, count)
	case "catalog:sync-suppliers":
		svc := catalog.NewSyncService(db, cfg)
		nSuppliers, nQuotes, err := svc.SyncSuppliers(context.Background())
		must(err)
		fmt.Printf("supplier sync complete suppliers=%d quotes=%d\n", nSuppliers, nQuotes)
	case "intake:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.IntakeProvider, "gmail|imap")
		label := fs.String("label", cfg.IntakeLabel, "mailbox or label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		inbox, err := connectors.New(*provider, cfg)
		must(err)
		fetcher := connectors.NewFetcher(db, cfg.RawMailDir, inbox)
		stats, err := fetcher.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("intake fetch done provider=%s fetched=%d stored=%d\n", *provider, stats.Fetched, stats.Stored)
	case "intake:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.IntakeProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		proc := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := proc.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed intake id=%d status=%s orders=%d products=%d\n", res.IntakeID, res.Status, res.Orders, res.Products)
			return
		}
		processed, ready, err := proc.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending intakes=%d ready=%d\n", processed, ready)
	case "match:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path or raw text")
		inType := fs.String("type", "", "xlsx|pdf|email_text|email_table")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *inType == "" || *output == "" {
			must(fmt.Errorf("--input --type --output are required"))
		}
		orders, err := pipeline.ExtractOrdersFromInput(*inType, *input)
		must(err)
		upload := pipeline.NewUploadResult(orders)
		if upload.TotalProducts == 0 {
			must(fmt.Errorf("no order lines extracted from %s", *input))
		}
		proc := pipeline.NewProcessingService(db, cfg)
		match, err := proc.MatchUpload(upload)
		must(err)
		rows := pipeline.ReportRows(upload, match)
		must(pipeline.ExportMatchReport(rows, *output))
		fmt.Printf("match run done lines=%d matched=%d output=%s\n", match.TotalProducts, match.MatchedProducts, *output)
	case "export:report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		intakeID := fs.Int("intake", 0, "intake email id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *intakeID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--intake and --out are required"))
		}
		email, err := db.GetIntakeByID(*intakeID)
		must(err)
		if email == nil {
			must(fmt.Errorf("intake email not found: id=%d", *intakeID))
		}
		proc := pipeline.NewProcessingService(db, cfg)
		upload, err := proc.UploadFromIntake(*email)
		must(err)
		match, err := proc.MatchUpload(upload)
		must(err)
		rows := pipeline.ReportRows(upload, match)
		must(pipeline.ExportMatchReport(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "templates:seed":
		created := 0
		for _, tpl := range templates.Defaults() {
			existing, err := db.GetTemplateByName(tpl.Name)
			must(err)
			if existing != nil {
				continue
			}
			_, err = db.CreateTemplate(tpl)
			must(err)
			created++
		}
		fmt.Printf("templates seeded: %d created\n", created)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: chandlery <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:initial-sync")
	fmt.Println("  catalog:incremental-sync --mode=hours|day")
	fmt.Println("  catalog:sync-suppliers")
	fmt.Println("  intake:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  intake:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  match:run --input=... --type=xlsx|pdf|email_text|email_table --output=...xlsx")
	fmt.Println("  export:report --intake=1 --out=./out/report.xlsx")
	fmt.Println("  templates:seed")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
