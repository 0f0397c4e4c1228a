package strongbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Progress is passed to the progress callback before each file
type Progress struct {
	CurrentFile string  // The file about to be processed
	Completed   int     // Files finished so far, successful or not
	Total       int     // Files in the batch
	Percent     float64 // Completed / Total * 100
}

// ProgressFunc receives progress updates. It runs on the batch goroutine
// and must not block for long.
type ProgressFunc func(Progress)

// FileFailure records why one file of a batch failed
type FileFailure struct {
	File string
	Kind Kind
	Err  error
}

// Report summarizes a batch
type Report struct {
	Success     bool          // True only if every file succeeded
	Message     string        // One-line summary for display
	Processed   int           // Files that were committed, including those with warnings
	Failed      int           // Files that failed
	FailedFiles []string      // Paths of failed files, in processing order
	Failures    []FileFailure // Structured failure for each entry in FailedFiles
	Warnings    []*BusyError  // Files committed with a busy-file warning
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithProgress sets the progress callback
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Runner expands a path into files and commits each one. Only one batch runs
// at a time; a second call while one is active fails fast.
type Runner struct {
	fs        FileSystem
	committer Committer
	progress  ProgressFunc
	logger    *logrus.Logger

	mu sync.Mutex
}

// NewRunner creates a batch runner over committer
func NewRunner(fsys FileSystem, committer Committer, opts ...RunnerOption) *Runner {
	r := &Runner{
		fs:        fsys,
		committer: committer,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = loggerOrDefault(r.logger)
	return r
}

// NewBatch wires an Engine, a Transactor and a Runner from one config
func NewBatch(config *Config, opts ...RunnerOption) (*Runner, error) {
	engine, err := New(config)
	if err != nil {
		return nil, err
	}
	var logger *logrus.Logger
	if config != nil {
		logger = config.Logger
	}
	opts = append([]RunnerOption{WithLogger(logger)}, opts...)
	return NewRunner(engine.FS(), NewTransactor(engine.FS(), engine, logger), opts...), nil
}

type batchOp struct {
	verb    string // "encrypt" or "decrypt"
	past    string // "encrypted" or "decrypted"
	noFiles string
	hint    string // appended to failure messages
	commit  func(file string) (*Result, error)
}

// Encrypt encrypts path, or every visible file below it, with settings
func (r *Runner) Encrypt(ctx context.Context, path string, password []byte, settings Settings) (*Report, error) {
	return r.run(ctx, path, password, batchOp{
		verb:    "encrypt",
		past:    "encrypted",
		noFiles: "no files to encrypt",
		commit: func(file string) (*Result, error) {
			return r.committer.EncryptFile(file, password, settings)
		},
	})
}

// Decrypt decrypts path, or every visible file below it
func (r *Runner) Decrypt(ctx context.Context, path string, password []byte) (*Report, error) {
	return r.run(ctx, path, password, batchOp{
		verb:    "decrypt",
		past:    "decrypted",
		noFiles: "no files found",
		hint:    "wrong password or files are not encrypted",
		commit: func(file string) (*Result, error) {
			return r.committer.DecryptFile(file, password)
		},
	})
}

// run returns an error only when the batch could not start or was
// cancelled; per-file failures go into the report.
func (r *Runner) run(ctx context.Context, path string, password []byte, op batchOp) (*Report, error) {
	if !r.mu.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer r.mu.Unlock()

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	files, err := CollectFiles(r.fs, path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &Report{Success: false, Message: op.noFiles}, nil
	}

	log := r.logger.WithFields(logrus.Fields{"op": op.verb, "path": path, "files": len(files)})
	log.Info("batch started")

	report := &Report{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			log.WithField("completed", i).Warn("batch cancelled")
			report.finish(op, len(files))
			return report, err
		}

		if r.progress != nil {
			r.progress(Progress{
				CurrentFile: file,
				Completed:   i,
				Total:       len(files),
				Percent:     float64(i) / float64(len(files)) * 100,
			})
		}

		res, err := op.commit(file)
		if err != nil {
			kind := KindOf(err)
			report.Failed++
			report.FailedFiles = append(report.FailedFiles, file)
			report.Failures = append(report.Failures, FileFailure{File: file, Kind: kind, Err: err})
			r.logger.WithFields(logrus.Fields{
				"op":    op.verb,
				"file":  file,
				"kind":  kind.String(),
				"error": err,
			}).Warn("file failed")
			continue
		}

		report.Processed++
		if res.Warning != nil {
			report.Warnings = append(report.Warnings, res.Warning)
		}
		r.logger.WithFields(logrus.Fields{"op": op.verb, "file": file, "output": res.Path}).Debug("file done")
	}

	report.finish(op, len(files))
	log.WithFields(logrus.Fields{"processed": report.Processed, "failed": report.Failed}).Info("batch finished")
	return report, nil
}

func (rep *Report) finish(op batchOp, total int) {
	rep.Success = rep.Failed == 0 && rep.Processed == total
	switch {
	case rep.Success:
		rep.Message = fmt.Sprintf("%s %d file(s)", op.past, rep.Processed)
	case rep.Processed == 0:
		rep.Message = fmt.Sprintf("failed to %s %d file(s)", op.verb, rep.Failed)
	default:
		rep.Message = fmt.Sprintf("%s %d file(s), %d failed", op.past, rep.Processed, rep.Failed)
	}
	if rep.Failed > 0 && op.hint != "" {
		rep.Message += " (" + op.hint + ")"
	}
	if len(rep.Warnings) > 0 {
		rep.Message += fmt.Sprintf(", %d warning(s)", len(rep.Warnings))
	}
}
