package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"chandlery/internal"
	"chandlery/internal/config"
	"chandlery/internal/connectors"
	"chandlery/internal/pipeline"
	"chandlery/internal/storage"
)

// Service polls the intake mailbox on a fixed interval: fetch, classify, and
// optionally drop a match report next to each ready intake. Cycle errors are
// logged and the loop keeps going.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	logger *zap.Logger
	proc   *pipeline.ProcessingService
}

func NewService(db *storage.DB, cfg config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     db,
		cfg:    cfg,
		logger: logger,
		proc:   pipeline.NewProcessingService(db, cfg),
	}
}

func (s *Service) Run(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.IntakeProvider))
	inbox, err := connectors.New(provider, s.cfg)
	if err != nil {
		return err
	}
	fetcher := connectors.NewFetcher(s.db, s.cfg.RawMailDir, inbox)

	for {
		if err := s.runCycle(fetcher, provider); err != nil {
			s.logger.Error("intake cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.IntakeIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(fetcher *connectors.Fetcher, provider string) error {
	stats, err := fetcher.FetchAndStore(s.cfg.IntakeLabel, s.cfg.IntakeFetchMax)
	if err != nil {
		return err
	}

	processed, ready, err := s.proc.ProcessPending(s.cfg.IntakeProcessBatch, provider)
	if err != nil {
		return err
	}

	reported := 0
	if s.cfg.IntakeAutoReport {
		reported, err = s.reportReady(provider)
		if err != nil {
			return err
		}
	}

	s.logger.Info("intake cycle",
		zap.String("provider", provider),
		zap.Int("fetched", stats.Fetched),
		zap.Int("stored", stats.Stored),
		zap.Int("processed", processed),
		zap.Int("ready", ready),
		zap.Int("reported", reported),
	)
	return nil
}

// reportReady writes a match report workbook for each ready intake that does
// not have one yet. The intake stays "ready" so the wizard still lists it;
// the report file on disk is what makes this idempotent.
func (s *Service) reportReady(provider string) (int, error) {
	ready, err := s.db.ListIntakeByStatus("ready", 200)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, email := range ready {
		if email.Provider != provider {
			continue
		}
		outputPath := s.reportPath(email)
		if _, err := os.Stat(outputPath); err == nil {
			continue
		}

		upload, err := s.proc.UploadFromIntake(email)
		if err != nil {
			s.logger.Warn("report extract failed", zap.Int("intake", email.ID), zap.Error(err))
			continue
		}
		match, err := s.proc.MatchUpload(upload)
		if err != nil {
			return written, err
		}
		rows := pipeline.ReportRows(upload, match)
		if len(rows) == 0 {
			continue
		}
		if err := pipeline.ExportMatchReport(rows, outputPath); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (s *Service) reportPath(email internal.IntakeEmail) string {
	filename := fmt.Sprintf("%d_%s.xlsx", email.ID, sanitizeMessageID(email.MessageID))
	return filepath.Join(s.cfg.OutputDir, "intake", filename)
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
