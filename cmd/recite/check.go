package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/escalopa/quran-recite-checker/internal/adapter/transcriber"
	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/recite/alignment"
	"github.com/escalopa/quran-recite-checker/internal/recite/pageflip"
	"github.com/escalopa/quran-recite-checker/internal/recite/pipeline"
	"github.com/escalopa/quran-recite-checker/internal/recite/similarity"
)

var checkCmd = &cobra.Command{
	Use:   "check <from> <to>",
	Short: "Judge transcripts or recordings against an ayah range",
	Long: `Every --transcript file is checked as its own session, one recognized chunk
per non-empty line. Sessions run in parallel.

--audio files form a single session in the order given; each file is one
chunk sent to the configured transcriber.`,
	Example: `  recite check 1:1 1:7 --transcript fatiha.txt
  recite check 2:1 2:5 --audio part1.wav --audio part2.wav --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCheckCmd,
}

func init() {
	checkCmd.Flags().StringSlice("transcript", nil, "transcript file, one chunk per line (- for stdin)")
	checkCmd.Flags().StringSlice("audio", nil, "WAV chunk sent to the transcriber")
	checkCmd.Flags().Int("parallel", 4, "transcript files checked at once")
	checkCmd.Flags().Bool("json", false, "print results as JSON")
}

// checkSource is one session worth of chunks
type checkSource struct {
	Name       string
	Chunks     [][]byte
	Recognizer domain.RecognizerPort
}

type chunkResult struct {
	Heard  string            `json:"heard,omitempty"`
	Cursor int               `json:"cursor"`
	Skips  []domain.SkipSpan `json:"skips,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type checkResult struct {
	Name   string             `json:"name"`
	Chunks []chunkResult      `json:"chunks"`
	Flips  []int              `json:"flips,omitempty"`
	Report domain.FinalReport `json:"report"`
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	from, to, err := parseRangeArgs(args)
	if err != nil {
		return err
	}

	transcripts, _ := cmd.Flags().GetStringSlice("transcript")
	audio, _ := cmd.Flags().GetStringSlice("audio")
	parallel, _ := cmd.Flags().GetInt("parallel")
	asJSON, _ := cmd.Flags().GetBool("json")

	if len(transcripts) == 0 && len(audio) == 0 {
		return errors.New("nothing to check: pass --transcript or --audio")
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}

	rng, err := e.builder.Build(from, to)
	if err != nil {
		return err
	}
	if rng.Empty() {
		return domain.ErrEmptyRange
	}

	sources, err := loadSources(cmd.InOrStdin(), e, transcripts, audio)
	if err != nil {
		return err
	}

	opts, err := sessionOptions(e)
	if err != nil {
		return err
	}

	results := make([]*checkResult, len(sources))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(parallel, 1))
	for i, src := range sources {
		g.Go(func() error {
			res, err := runCheck(ctx, rng, src, opts...)
			if err != nil {
				return fmt.Errorf("check %s: %w", src.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, res := range results {
		printResult(out, rng, res)
	}
	return nil
}

func sessionOptions(e *env) ([]pipeline.Option, error) {
	scorer, err := similarity.ByName(e.cfg.Recite.Scorer)
	if err != nil {
		return nil, err
	}
	return []pipeline.Option{
		pipeline.WithLogger(e.logger.Named("session")),
		pipeline.WithEngineOptions(
			alignment.WithScorer(scorer),
			alignment.WithDirectThreshold(e.cfg.Recite.DirectThreshold),
			alignment.WithLookaheadThreshold(e.cfg.Recite.LookaheadThreshold),
			alignment.WithLookaheadWindow(e.cfg.Recite.LookaheadWindow),
			alignment.WithLogger(e.logger.Named("alignment")),
		),
		pipeline.WithMonitorOptions(
			pageflip.WithSpread(e.cfg.Mushaf.Spread),
			pageflip.WithLastPage(e.cfg.Mushaf.LastPage),
		),
	}, nil
}

func loadSources(stdin io.Reader, e *env, transcripts, audio []string) ([]checkSource, error) {
	var sources []checkSource

	for _, path := range transcripts {
		chunks, err := readTranscript(stdin, path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, checkSource{Name: path, Chunks: chunks, Recognizer: textRecognizer{}})
	}

	if len(audio) > 0 {
		if e.cfg.Transcriber.BaseURL == "" {
			return nil, errors.New("--audio needs transcriber.base_url in the config")
		}

		src := checkSource{
			Name: strings.Join(audio, ","),
			Recognizer: transcriber.NewClient(e.cfg.Transcriber.BaseURL, e.cfg.Transcriber.APIKey,
				transcriber.WithTimeout(e.cfg.Transcriber.Timeout)),
		}
		for _, path := range audio {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read audio: %w", err)
			}
			src.Chunks = append(src.Chunks, data)
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func readTranscript(stdin io.Reader, path string) ([][]byte, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		r = f
	}

	var chunks [][]byte
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			chunks = append(chunks, []byte(line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", path, err)
	}
	return chunks, nil
}

// runCheck feeds every chunk of src through a session and waits until all
// of them are judged
func runCheck(ctx context.Context, rng *domain.Range, src checkSource, opts ...pipeline.Option) (*checkResult, error) {
	render := &collectRender{result: &checkResult{Name: src.Name}}
	render.wg.Add(len(src.Chunks))

	var session *pipeline.Session
	render.ack = func() { session.AcknowledgeFlip() }

	opts = append(opts, pipeline.WithQueueSize(max(len(src.Chunks), 1)))

	var err error
	session, err = pipeline.Start(ctx, rng, src.Recognizer, render, opts...)
	if err != nil {
		return nil, err
	}

	for _, chunk := range src.Chunks {
		if err := session.Push(chunk); err != nil {
			session.Stop()
			return nil, fmt.Errorf("push chunk: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		render.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		session.Stop()
		return nil, ctx.Err()
	}

	// Stop waits for the consumer, so a flip after the last chunk is recorded
	report := session.Stop()
	render.result.Report = report
	return render.result, nil
}

// textRecognizer treats each chunk as an already recognized transcript
type textRecognizer struct{}

func (textRecognizer) Recognize(_ context.Context, audio io.Reader) (domain.Transcript, error) {
	b, err := io.ReadAll(audio)
	if err != nil {
		return domain.Transcript{}, err
	}
	return domain.Transcript{Text: string(b), Final: true}, nil
}

// collectRender records what a session renders. Flips are acknowledged
// right away.
type collectRender struct {
	wg     sync.WaitGroup
	ack    func()
	result *checkResult
}

func (r *collectRender) RenderChunk(_ context.Context, u domain.ChunkUpdate) {
	r.result.Chunks = append(r.result.Chunks, chunkResult{Heard: u.Text, Cursor: u.Cursor, Skips: u.Skips})
	r.wg.Done()
}

func (r *collectRender) FlipPage(_ context.Context, page int) {
	r.result.Flips = append(r.result.Flips, page)
	r.ack()
}

func (r *collectRender) RecognitionUnavailable(_ context.Context, err error) {
	r.result.Chunks = append(r.result.Chunks, chunkResult{Cursor: -1, Error: err.Error()})
	r.wg.Done()
}

func printResult(w io.Writer, rng *domain.Range, res *checkResult) {
	fmt.Fprintf(w, "== %s ==\n", res.Name)

	for i, c := range res.Chunks {
		if c.Error != "" {
			fmt.Fprintf(w, "#%d recognition unavailable: %s\n", i+1, c.Error)
			continue
		}
		fmt.Fprintf(w, "#%d %q -> cursor %d", i+1, c.Heard, c.Cursor)
		for _, s := range c.Skips {
			fmt.Fprintf(w, " skipped %d word(s) [%d,%d)", s.Len(), s.From, s.To)
		}
		fmt.Fprintln(w)
	}

	for _, p := range res.Flips {
		fmt.Fprintf(w, "page flip -> %d\n", p)
	}

	fmt.Fprintln(w, formatStatuses(rng, res.Report.Statuses))

	r := res.Report
	fmt.Fprintf(w, "reached %d/%d, correct %d, incorrect %d, accuracy %.1f%%\n\n",
		r.Reached, r.Total, r.Correct, r.Incorrect, r.Ratio*100)
}

// formatStatuses marks every word: +word correct, -word incorrect, ?word
// not reached
func formatStatuses(rng *domain.Range, statuses []domain.WordStatus) string {
	parts := make([]string, len(rng.Words))
	for i, w := range rng.Words {
		mark := "?"
		if i < len(statuses) {
			switch statuses[i] {
			case domain.StatusCorrect:
				mark = "+"
			case domain.StatusIncorrect:
				mark = "-"
			}
		}
		parts[i] = mark + w.Normalized
	}
	return strings.Join(parts, " ")
}
