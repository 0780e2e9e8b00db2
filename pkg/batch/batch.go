// Package batch runs the skull detector over a dataset of patient
// directories and tallies the verdicts.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"skulldetect/pkg/config"
	"skulldetect/pkg/detector"
	"skulldetect/pkg/nifti"
	"skulldetect/pkg/store"
	"skulldetect/pkg/visualization"
)

// Expected labels for a dataset
const (
	ExpectNone    = ""
	ExpectPresent = "present"
	ExpectAbsent  = "absent"
)

// Options describes the dataset layout and how it is processed
type Options struct {
	// Root holds one subdirectory per patient
	Root string

	// VolumePattern locates the intensity volume below Root; {id} is
	// replaced by the patient ID
	VolumePattern string

	// MaskDir is the root of the masks, Root when empty
	MaskDir string

	// MaskPattern locates the mask below MaskDir
	MaskPattern string

	// Expect is the verdict every patient should receive, ExpectNone to skip scoring
	Expect string

	// NumCores is the number of patients processed concurrently
	NumCores int

	// PreviewDir receives <id>.png previews when set
	PreviewDir   string
	PreviewScale int
}

// OptionsFromConfig builds runner options for the dataset at root
func OptionsFromConfig(cfg *config.Config, root string) Options {
	return Options{
		Root:          root,
		VolumePattern: cfg.Batch.VolumePattern,
		MaskDir:       cfg.Batch.MaskDir,
		MaskPattern:   cfg.Batch.MaskPattern,
		Expect:        cfg.Batch.Expect,
		NumCores:      cfg.Batch.NumCores,
		PreviewDir:    cfg.Output.PreviewDir,
		PreviewScale:  4,
	}
}

// Ledger records runs and per-patient results
type Ledger interface {
	CreateRun(ctx context.Context, dataset, expect string) (*store.Run, error)
	SaveResult(ctx context.Context, rec *store.Record) error
}

// Outcome is the result of one patient
type Outcome struct {
	PatientID string
	Result    *detector.Result
	Err       error
	Elapsed   time.Duration
}

// Summary tallies a batch run
type Summary struct {
	RunID         int64
	Total         int
	SkullPresent  int
	SkullAbsent   int
	Failed        int
	LowConfidence int

	// Correct counts verdicts matching the expected label
	Correct  int
	Accuracy float64

	// MeanYesVotes is averaged over the patients that did not fail
	MeanYesVotes float64

	// Outcomes are ordered by patient ID
	Outcomes []Outcome
}

// Runner processes a dataset with fixed detector parameters
type Runner struct {
	params detector.Params
	opts   Options
	ledger Ledger
}

// NewRunner creates a runner. ledger may be nil.
func NewRunner(params detector.Params, opts Options, ledger Ledger) *Runner {
	if opts.NumCores < 1 {
		opts.NumCores = 1
	}
	if opts.MaskDir == "" {
		opts.MaskDir = opts.Root
	}
	if opts.PreviewScale < 1 {
		opts.PreviewScale = 1
	}
	return &Runner{params: params, opts: opts, ledger: ledger}
}

// Scan lists the patient IDs below root in lexical order
func Scan(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// expand substitutes the patient ID into a path pattern
func expand(dir, pattern, id string) string {
	return filepath.Join(dir, strings.ReplaceAll(pattern, "{id}", id))
}

// VolumePath returns the intensity volume path of a patient
func (r *Runner) VolumePath(id string) string {
	return expand(r.opts.Root, r.opts.VolumePattern, id)
}

// MaskPath returns the mask path of a patient
func (r *Runner) MaskPath(id string) string {
	return expand(r.opts.MaskDir, r.opts.MaskPattern, id)
}

// Run processes every patient of the dataset
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	switch r.opts.Expect {
	case ExpectNone, ExpectPresent, ExpectAbsent:
	default:
		return nil, fmt.Errorf("unknown expected label %q", r.opts.Expect)
	}

	ids, err := Scan(r.opts.Root)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dataset", r.opts.Root).Int("patients", len(ids)).Int("cores", r.opts.NumCores).Msg("Starting batch")

	var runID int64
	if r.ledger != nil {
		run, err := r.ledger.CreateRun(ctx, r.opts.Root, r.opts.Expect)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	jobs := make(chan string)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for c := 0; c < r.opts.NumCores; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				out := r.process(id)
				r.record(ctx, runID, out)
				select {
				case results <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range ids {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, 0, len(ids))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch interrupted after %d of %d patients: %w", len(outcomes), len(ids), err)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].PatientID < outcomes[j].PatientID
	})

	summary := Summarize(outcomes, r.opts.Expect)
	summary.RunID = runID
	return summary, nil
}

// process loads and analyses one patient
func (r *Runner) process(id string) Outcome {
	start := time.Now()
	out := Outcome{PatientID: id}

	volume, err := nifti.Read(r.VolumePath(id))
	if err != nil {
		out.Err = fmt.Errorf("failed to load volume: %w", err)
		log.Warn().Err(out.Err).Str("patient", id).Msg("Skipping patient")
		return out
	}
	mask, err := nifti.Read(r.MaskPath(id))
	if err != nil {
		out.Err = fmt.Errorf("failed to load mask: %w", err)
		log.Warn().Err(out.Err).Str("patient", id).Msg("Skipping patient")
		return out
	}

	res, err := detector.Detect(volume, mask, r.params)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Err = err
		log.Warn().Err(err).Str("patient", id).Msg("Detection failed")
		return out
	}
	out.Result = res

	log.Info().
		Str("patient", id).
		Bool("skull", res.SkullPresent).
		Int("votes", res.YesVotes).
		Int("layer", res.MaxLayer).
		Bool("lowConfidence", res.LowConfidence).
		Dur("elapsed", out.Elapsed).
		Msg("Patient processed")

	if r.opts.PreviewDir != "" {
		img, err := visualization.NewViewer(volume).RenderDetection(res, r.opts.PreviewScale)
		if err == nil {
			err = visualization.SaveImage(img, filepath.Join(r.opts.PreviewDir, id+".png"))
		}
		if err != nil {
			log.Warn().Err(err).Str("patient", id).Msg("Failed to save preview")
		}
	}

	return out
}

// record stores an outcome in the ledger, if any
func (r *Runner) record(ctx context.Context, runID int64, out Outcome) {
	if r.ledger == nil {
		return
	}

	rec := &store.Record{RunID: runID, PatientID: out.PatientID}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	} else {
		res := out.Result
		rec.SkullPresent = res.SkullPresent
		rec.Votes = res.Votes
		rec.MaxLayer = res.MaxLayer
		rec.LowConfidence = res.LowConfidence
		for i, dr := range res.Directions {
			rec.Profiles[i] = dr.Normalized
		}
	}

	if err := r.ledger.SaveResult(ctx, rec); err != nil {
		log.Error().Err(err).Str("patient", out.PatientID).Msg("Failed to record result")
	}
}

// Summarize tallies outcomes against the expected label
func Summarize(outcomes []Outcome, expect string) *Summary {
	s := &Summary{Total: len(outcomes), Outcomes: outcomes}

	var votes []float64
	for _, out := range outcomes {
		if out.Err != nil {
			s.Failed++
			continue
		}
		res := out.Result
		if res.SkullPresent {
			s.SkullPresent++
		} else {
			s.SkullAbsent++
		}
		if res.LowConfidence {
			s.LowConfidence++
		}
		if (expect == ExpectPresent && res.SkullPresent) || (expect == ExpectAbsent && !res.SkullPresent) {
			s.Correct++
		}
		votes = append(votes, float64(res.YesVotes))
	}

	if len(votes) > 0 {
		s.MeanYesVotes = stat.Mean(votes, nil)
	}
	if expect != ExpectNone && s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
	}
	return s
}
