package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-analyzer/internal/agent"
	"github.com/fmuoria/resume-analyzer/internal/export"
	"github.com/fmuoria/resume-analyzer/internal/ingestion"
	"github.com/fmuoria/resume-analyzer/internal/logger"
	"github.com/fmuoria/resume-analyzer/internal/models"
)

type analyzeOptions struct {
	dir          string
	gmailSubject string
	requirement  string
	out          string
	saveDir      string
	top          int
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a folder or a Gmail search of CVs and print the ranking",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return analyze(cmd.Context(), analyzeOpts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeOpts.dir, "dir", "", "directory of CV files")
	analyzeCmd.Flags().StringVar(&analyzeOpts.gmailSubject, "gmail-subject", "", "import attachments of Gmail messages with this subject")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.requirement, "requirement", "r", "", "job requirement JSON file")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.out, "out", "o", "", "write the report to this xlsx file")
	analyzeCmd.Flags().StringVar(&analyzeOpts.saveDir, "save-dir", "", "keep a copy of the imported files in this directory")
	analyzeCmd.Flags().IntVarP(&analyzeOpts.top, "top", "n", 10, "number of candidates to print")

	analyzeCmd.MarkFlagsMutuallyExclusive("dir", "gmail-subject")
	analyzeCmd.MarkFlagsOneRequired("dir", "gmail-subject")
	_ = analyzeCmd.MarkFlagRequired("requirement")
}

func analyze(ctx context.Context, opts analyzeOptions, w io.Writer) error {
	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if !c.llm.IsConfigured() {
		return errors.New("no LLM API key: set llm.api-key or RESUME_LLM_API_KEY")
	}

	req, err := loadRequirement(opts.requirement)
	if err != nil {
		return err
	}

	files, err := collectFiles(ctx, opts, c)
	if err != nil {
		return err
	}

	if opts.saveDir != "" {
		paths, err := ingestion.NewFileHandler(opts.saveDir).SaveFiles(files)
		if err != nil {
			return fmt.Errorf("saving files: %w", err)
		}
		c.logger.Info("files saved", zap.String("dir", opts.saveDir), zap.Int("count", len(paths)))
	}

	return runAnalysis(ctx, c.agent, files, req, opts, w, c.logger)
}

func collectFiles(ctx context.Context, opts analyzeOptions, c *components) ([]models.UploadedFile, error) {
	if opts.dir != "" {
		files, err := ingestion.NewFileHandler(opts.dir).LoadFiles()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", opts.dir, err)
		}
		return files, nil
	}

	src, err := ingestion.NewGmailSource(ctx, c.cfg.Gmail.Credentials, c.cfg.Gmail.Token, c.logger)
	if err != nil {
		return nil, err
	}
	return src.FetchAttachments(ctx, opts.gmailSubject)
}

// loadRequirement reads a job requirement file. Omitted weights keep the
// 40/40/20 defaults.
func loadRequirement(path string) (models.JobRequirement, error) {
	req := models.DefaultJobRequirement()

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading requirement: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parsing requirement %s: %w", path, err)
	}
	if err := validator.New().Struct(req); err != nil {
		return req, fmt.Errorf("invalid requirement %s: %w", path, err)
	}
	return req, nil
}

// runAnalysis uploads files into a throwaway session, scores them and prints
// the top of the ranking. The full ranking goes to opts.out when set.
func runAnalysis(ctx context.Context, a *agent.ResumeAgent, files []models.UploadedFile, req models.JobRequirement, opts analyzeOptions, w io.Writer, lg *zap.Logger) error {
	lg = logger.OrNop(lg)
	if len(files) == 0 {
		return errors.New("no CV files found")
	}

	id := a.CreateSession()
	defer a.DeleteSession(id)

	summary := a.UploadCandidates(ctx, id, files)
	for _, e := range summary.Errors {
		lg.Warn("file skipped", zap.String("reason", e))
	}

	a.SetProgressCallback(func(current, total int, message string) {
		lg.Info(message, zap.Int("current", current), zap.Int("total", total))
	})
	defer a.SetProgressCallback(nil)

	batch, err := a.AnalyzeBatch(ctx, id, req)
	if err != nil {
		return err
	}
	for _, e := range batch.Errors {
		lg.Warn("candidate skipped", zap.String("reason", e))
	}

	if err := printRanking(w, a.TopCandidates(id, opts.top)); err != nil {
		return err
	}

	if opts.out != "" {
		path, err := export.ExportToExcel(a.Results(id), &req, opts.out)
		if err != nil {
			return fmt.Errorf("exporting report: %w", err)
		}
		lg.Info("report written", zap.String("path", path))
	}
	return nil
}

func printRanking(w io.Writer, results []models.ResultView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCANDIDATE\tEMAIL\tTOTAL\tSKILLS\tEXPERIENCE\tEDUCATION")
	for i, r := range results {
		email := ""
		if r.Candidate != nil {
			email = r.Candidate.Email
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.1f\t%.1f\t%.1f\n",
			i+1, r.Name(), email, r.TotalScore, r.SkillsScore, r.ExperienceScore, r.EducationScore)
	}
	return tw.Flush()
}
