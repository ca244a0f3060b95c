// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// budgetPollInterval is the wait between memory budget attempts.
const budgetPollInterval = 2 * time.Millisecond

// errPipelineStopped marks jobs abandoned after the pipeline was halted.
var errPipelineStopped = errors.New("pipeline stopped")

// packJob is one input file of a batched add.
type packJob struct {
	modTime  time.Time
	existing *EntryInfo
	done     chan struct{}
	err      error
	name     string
	realPath string
	reason   string
	payload  []byte
	index    int
	size     int64
	weight   int64
	crc      uint32
	status   FileStatus
	method   Method
	// decided jobs were resolved while planning and never reach a worker.
	decided bool
}

// decide resolves a job without compression work.
func (j *packJob) decide(status FileStatus, reason string) {
	j.status = status
	j.reason = reason
	j.decided = true
}

// report builds the outcome event.
func (j *packJob) report() FileReport {
	return FileReport{
		Name:       j.name,
		RealPath:   j.realPath,
		Reason:     j.reason,
		Status:     j.status,
		Size:       j.size,
		StoredSize: int64(len(j.payload)),
		Method:     j.method,
	}
}

// packPipeline compresses jobs in parallel under a memory budget.
type packPipeline struct {
	ctx      context.Context
	policy   *compressPolicy
	key      *Key
	budget   *semaphore.Weighted
	stop     chan struct{}
	awaited  atomic.Int64
	limit    int64
	stopOnce sync.Once
	encrypt  bool
}

// UpdateMultipleFiles adds or refreshes files in one batched, parallel call.
//
// realPaths[i] is stored under names[i]. Every input is reported once through
// reporter, except inputs after a split point. When splitter is set it is
// consulted before each add in input order; on the first rejection the
// remaining work is abandoned and the call returns nil.
func (a *Archive) UpdateMultipleFiles(
	ctx context.Context,
	realPaths []string,
	names []string,
	opts UpdateOptions,
	reporter Reporter,
	splitter *SizeSplitter,
) error {
	if err := a.checkWritable(); err != nil {
		return err
	}

	if len(realPaths) != len(names) {
		return fmt.Errorf("%w: %d real paths, %d names", ErrMismatchedInputs, len(realPaths), len(names))
	}

	opts.applyDefaults()
	if opts.EncryptContent && a.opts.Key == nil {
		return fmt.Errorf("encrypt content: %w", ErrKeyRequired)
	}

	if reporter == nil {
		reporter = nopReporter{}
	}

	store, err := newRuleMatcher(opts.StoreRules, opts.StoreMatcherOptions)
	if err != nil {
		return err
	}

	started := time.Now()
	jobs := a.planJobs(realPaths, names, opts)

	p := &packPipeline{
		ctx: ctx,
		policy: &compressPolicy{
			store:   store,
			level:   opts.CompressionLevel,
			fastest: opts.FastestDecompression,
		},
		key:     a.opts.Key,
		budget:  semaphore.NewWeighted(opts.MemoryLimit),
		limit:   opts.MemoryLimit,
		encrypt: opts.EncryptContent,
		stop:    make(chan struct{}),
	}
	p.awaited.Store(-1)

	var wg sync.WaitGroup
	p.start(&wg, jobs, opts.Workers)

	processed, err := a.commitJobs(p, jobs, opts, reporter, splitter)
	p.halt()
	wg.Wait()

	if elapsed := time.Since(started); elapsed > 0 {
		reporter.ReportSpeed(float64(processed) / elapsed.Seconds())
	}

	return err
}

// planJobs builds jobs in input order and resolves the ones that need no work.
func (a *Archive) planJobs(realPaths []string, names []string, opts UpdateOptions) []*packJob {
	jobs := make([]*packJob, 0, len(names))
	for i := range names {
		job := &packJob{index: i, realPath: realPaths[i], name: names[i]}
		jobs = append(jobs, job)

		name, err := normalizeArchiveEntryPath(names[i])
		if err != nil {
			job.decide(StatusFailed, err.Error())
			continue
		}

		job.name = name

		fi, err := os.Stat(realPaths[i])
		switch {
		case errors.Is(err, fs.ErrNotExist):
			job.decide(StatusMissing, "source not found")
			continue
		case err != nil:
			job.decide(StatusFailed, err.Error())
			continue
		case !fi.Mode().IsRegular():
			job.decide(StatusSkipped, "not a regular file")
			continue
		}

		job.size = fi.Size()
		job.modTime = fi.ModTime()

		if existing := a.lookup(name); existing != nil {
			info := existing.info
			job.existing = &info
			if info.UncompressedSize == job.size && info.Modified.Equal(dosTime(job.modTime)) {
				job.decide(StatusUpToDate, "")
				continue
			}
		}

		if job.size < opts.MinSourceSize || (opts.MaxSourceSize > 0 && job.size > opts.MaxSourceSize) {
			job.decide(StatusSkipped, "source size out of range")
			continue
		}

		job.done = make(chan struct{})
	}

	return jobs
}

// commitJobs stores finished jobs strictly in input order and returns source bytes added.
func (a *Archive) commitJobs(
	p *packPipeline,
	jobs []*packJob,
	opts UpdateOptions,
	reporter Reporter,
	splitter *SizeSplitter,
) (int64, error) {
	var processed int64
	for _, job := range jobs {
		if !job.decided {
			p.awaited.Store(int64(job.index))
			select {
			case <-job.done:
			case <-p.ctx.Done():
				return processed, p.ctx.Err()
			}

			if job.err != nil {
				return processed, job.err
			}
		}

		if job.status != StatusAdded {
			p.release(job)
			reporter.ReportFile(job.report())
			continue
		}

		if opts.MaxArchiveSize > 0 && a.size > opts.MaxArchiveSize {
			p.release(job)
			job.payload = nil
			job.status = StatusSkipped
			job.reason = "archive size limit reached"
			reporter.ReportFile(job.report())
			continue
		}

		add := entryDiskSize(job.name, int64(len(job.payload)), a.opts.Alignment)
		var sub int64
		if current := a.lookup(job.name); current != nil {
			sub = entryDiskSize(current.info.Name, current.info.CompressedSize, a.opts.Alignment)
		}

		if splitter != nil && splitter.CheckWriteLimit(a.size, add, sub) {
			splitter.SetLastFile(a.size, add, sub, job.index-1)
			p.release(job)
			return processed, nil
		}

		if err := a.storeJob(job, p.encrypt); err != nil {
			job.status = StatusFailed
			job.reason = err.Error()
		} else {
			processed += job.size
		}

		p.release(job)
		reporter.ReportFile(job.report())
		job.payload = nil
	}

	return processed, nil
}

// storeJob spools the payload and records the entry.
func (a *Archive) storeJob(job *packJob, encrypted bool) error {
	offset, err := a.spoolWrite(job.payload)
	if err != nil {
		return err
	}

	a.put(&archiveEntry{
		info: EntryInfo{
			Name:             job.name,
			Method:           job.method,
			CRC32:            job.crc,
			CompressedSize:   int64(len(job.payload)),
			UncompressedSize: job.size,
			Modified:         dosTime(job.modTime),
			Encrypted:        encrypted,
		},
		offset: offset,
		source: payloadFromSpool,
	})
	a.dirty = true

	return nil
}

// start launches workers and the feeder.
func (p *packPipeline) start(wg *sync.WaitGroup, jobs []*packJob, workers int) {
	work := make(chan *packJob)
	for range workers {
		wg.Go(func() {
			for job := range work {
				p.process(job)
				close(job.done)
			}
		})
	}

	wg.Go(func() {
		defer close(work)
		for _, job := range jobs {
			if job.decided {
				continue
			}

			select {
			case work <- job:
			case <-p.stop:
				return
			}
		}
	})
}

// halt stops feeding and makes workers skip queued jobs.
func (p *packPipeline) halt() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// stopped reports whether the pipeline was halted.
func (p *packPipeline) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// process reads, checks and compresses one job.
func (p *packPipeline) process(job *packJob) {
	if p.stopped() {
		job.err = errPipelineStopped
		return
	}

	if err := p.acquire(job); err != nil {
		job.err = err
		return
	}

	data, err := os.ReadFile(job.realPath)
	if err != nil {
		p.release(job)
		if errors.Is(err, fs.ErrNotExist) {
			job.status, job.reason = StatusMissing, "source not found"
			return
		}

		job.status, job.reason = StatusFailed, err.Error()
		return
	}

	job.size = int64(len(data))
	job.crc = crc32.ChecksumIEEE(data)
	if ex := job.existing; ex != nil && ex.CRC32 == job.crc && ex.UncompressedSize == job.size {
		p.release(job)
		job.status = StatusUpToDate
		return
	}

	payload, method, err := p.policy.compress(job.name, data)
	if err != nil {
		p.release(job)
		job.status, job.reason = StatusFailed, err.Error()
		return
	}

	if p.encrypt {
		if err := xorInPlace(p.key, contentIV(job.name, job.size), payload); err != nil {
			p.release(job)
			job.status, job.reason = StatusFailed, err.Error()
			return
		}
	}

	job.payload, job.method = payload, method
	job.status = StatusAdded
}

// acquire reserves memory budget for a job. The job the committer waits for
// and its successor proceed without budget so the pipeline cannot stall.
func (p *packPipeline) acquire(job *packJob) error {
	weight := min(job.size, p.limit)
	if weight <= 0 {
		return nil
	}

	for {
		if p.budget.TryAcquire(weight) {
			job.weight = weight
			return nil
		}

		if int64(job.index) <= p.awaited.Load()+1 {
			return nil
		}

		select {
		case <-p.stop:
			return errPipelineStopped
		case <-p.ctx.Done():
			return p.ctx.Err()
		case <-time.After(budgetPollInterval):
		}
	}
}

// release returns a job's memory budget.
func (p *packPipeline) release(job *packJob) {
	if job.weight > 0 {
		p.budget.Release(job.weight)
		job.weight = 0
	}
}
