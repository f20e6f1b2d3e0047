package sshclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ExecutorState is the phase an Executor is in.
type ExecutorState int

const (
	StateIdle ExecutorState = iota
	StatePlanning
	StatePerItemLoop
	StateSummarizing
	StateDone
)

func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StatePerItemLoop:
		return "per-item"
	case StateSummarizing:
		return "summarizing"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("ExecutorState(%d)", int(s))
}

// Executor runs transfer batches one item at a time. A failed item is
// recorded in the Report and the batch moves on; items are never retried.
type Executor struct {
	Remote   RemoteFilesystem
	Local    afero.Fs
	Resolver *Resolver
	Logger   Logger

	// Observer, when set, is called with each outcome as it is recorded.
	Observer func(Outcome)

	state ExecutorState
}

// NewExecutor returns an Executor. A nil local filesystem means the OS
// filesystem; a nil resolver means a non-interactive one over local.
func NewExecutor(remote RemoteFilesystem, local afero.Fs, resolver *Resolver, logger Logger) *Executor {
	if local == nil {
		local = afero.NewOsFs()
	}
	if resolver == nil {
		resolver = NewResolver(local, nil)
	}
	return &Executor{Remote: remote, Local: local, Resolver: resolver, Logger: logger}
}

// State returns the current phase.
func (e *Executor) State() ExecutorState { return e.state }

func (e *Executor) log() Logger { return loggerOrNop(e.Logger) }

func (e *Executor) setState(s ExecutorState) {
	e.state = s
	e.log().Debugf("executor state: %s", s)
}

func (e *Executor) record(r *Report, o Outcome) {
	r.Record(o)
	if o.Status == StatusFailed {
		e.log().Warnf("%s %s failed: %s", r.Operation, o.Source, o.Message)
	}
	if e.Observer != nil {
		e.Observer(o)
	}
}

func (e *Executor) summarize(phase phaseLogger, r *Report) {
	e.setState(StateSummarizing)
	r.finalize()
	phase.PhaseComplete(string(r.Operation), len(r.Outcomes))
	e.log().Infof("%s", r.Summary())
	e.setState(StateDone)
}

func failed(o Outcome, err error) Outcome {
	o.Status = StatusFailed
	o.Message = err.Error()
	return o
}

// remoteFailed is failed for errors returned by the remote side. The
// remote's diagnostic is appended when the failing call left a new one that
// the error text does not already carry; before is the diagnostic seen when
// the item started.
func (e *Executor) remoteFailed(o Outcome, err error, before string) Outcome {
	o = failed(o, err)
	if diag := e.Remote.LastError(); diag != "" && diag != before && !strings.Contains(o.Message, diag) {
		o.Message = fmt.Sprintf("%s (remote: %s)", o.Message, diag)
	}
	return o
}

func succeeded(o Outcome, n int64, msg string) Outcome {
	o.Status = StatusSuccess
	o.Bytes = n
	o.Message = msg
	return o
}

// Upload copies every entry of plan to destRoot, mirroring relative paths.
// Missing remote directories are created on the way. The returned error is
// non-nil only for structural problems; item failures live in the Report.
func (e *Executor) Upload(ctx context.Context, plan *TransferPlan, destRoot string, opts UploadOptions) (*Report, error) {
	e.setState(StatePlanning)
	if plan == nil {
		return nil, errors.New("upload requires a plan")
	}
	opts = opts.WithDefaults()
	report := newReport(OperationUpload, opts.DryRun)
	phase := phaseLogger{log: e.log()}

	e.setState(StatePerItemLoop)
	phase.PhaseStart(string(OperationUpload), plan.Len())

	ensured := make(map[string]bool)
	for _, entry := range plan.Entries {
		o := e.uploadOne(ctx, entry, destRoot, opts, ensured)
		e.record(report, o)
		phase.ItemProcessed(string(OperationUpload), entry.RelPath, string(o.Status))
	}

	e.summarize(phase, report)
	return report, nil
}

func (e *Executor) uploadOne(ctx context.Context, entry FileEntry, destRoot string, opts UploadOptions, ensured map[string]bool) Outcome {
	o := Outcome{Entry: entry, Source: entry.Path}
	if err := ctx.Err(); err != nil {
		return failed(o, fmt.Errorf("upload cancelled: %w", err))
	}

	o.Destination = e.Resolver.ResolveUpload(destRoot, entry.RelPath)

	if opts.DryRun {
		return succeeded(o, entry.Size, "dry run")
	}

	before := e.Remote.LastError()
	if err := e.ensureRemoteDir(ctx, path.Dir(o.Destination), opts.DirMode, ensured); err != nil {
		return e.remoteFailed(o, err, before)
	}

	data, err := afero.ReadFile(e.Local, entry.Path)
	if err != nil {
		return failed(o, fmt.Errorf("failed to read local file: %w", err))
	}

	before = e.Remote.LastError()
	if err := e.Remote.WriteFile(ctx, o.Destination, data); err != nil {
		return e.remoteFailed(o, err, before)
	}
	return succeeded(o, int64(len(data)), "")
}

func (e *Executor) ensureRemoteDir(ctx context.Context, dir string, mode os.FileMode, ensured map[string]bool) error {
	if dir == "" || dir == "." || dir == "/" || ensured[dir] {
		return nil
	}
	if !e.Remote.IsDir(ctx, dir) {
		if err := e.Remote.Mkdir(ctx, dir, mode, true); err != nil {
			return err
		}
	}
	ensured[dir] = true
	return nil
}

type downloadItem struct {
	remote string
	rel    string
	dest   string // precomputed for directory downloads
}

// Download fetches remotePath into localTarget. A remote directory is
// mirrored below localTarget under its own name, skipping hidden entries;
// subdirectories are included when opts.Recursive is set. A remote file is
// written to the destination chosen by Resolver.ResolveDownload.
//
// A remote path that is neither a file nor a directory yields
// *RemoteNotFoundError.
func (e *Executor) Download(ctx context.Context, remotePath, localTarget string, opts DownloadOptions) (*Report, error) {
	e.setState(StatePlanning)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("download cancelled: %w", err)
	}
	if localTarget == "" {
		localTarget = "."
	}

	var (
		items     []downloadItem
		directory bool
	)
	switch {
	case e.Remote.IsDir(ctx, remotePath):
		directory = true
		var err error
		items, err = e.planDirectory(ctx, remotePath, localTarget, opts)
		if err != nil {
			return nil, err
		}
	case e.Remote.IsFile(ctx, remotePath):
		items = []downloadItem{{remote: remotePath, rel: path.Base(remotePath)}}
	default:
		return nil, &RemoteNotFoundError{Path: remotePath}
	}

	report := newReport(OperationDownload, opts.DryRun)
	phase := phaseLogger{log: e.log()}

	e.setState(StatePerItemLoop)
	phase.PhaseStart(string(OperationDownload), len(items))

	for _, item := range items {
		o := e.downloadOne(ctx, item, localTarget, directory, opts)
		e.record(report, o)
		phase.ItemProcessed(string(OperationDownload), item.rel, string(o.Status))
	}

	e.summarize(phase, report)
	return report, nil
}

func (e *Executor) planDirectory(ctx context.Context, remoteDir, localTarget string, opts DownloadOptions) ([]downloadItem, error) {
	listing, err := ListRemote(ctx, e.Remote, remoteDir, opts.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote directory %s: %w", remoteDir, err)
	}

	// Listings are absolute; relative roots are resolved the same way.
	root := path.Clean(remoteDir)
	if !path.IsAbs(root) {
		if wd, err := e.Remote.Getwd(ctx); err == nil {
			root = resolveRemotePath(wd, root)
		}
	}
	files, err := listing.
		WithoutHidden().
		Filter(func(p string) bool { return !inHiddenDir(root, p) }).
		FilesOnly(ctx)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun && !files.IsEmpty() {
		if err := e.Resolver.EnsureLocalDir(localTarget); err != nil {
			return nil, err
		}
	}

	return MapListing(files, func(p string) downloadItem {
		rel := strings.TrimPrefix(strings.TrimPrefix(path.Clean(p), root), "/")
		return downloadItem{
			remote: p,
			rel:    rel,
			dest:   e.Resolver.ResolveMirror(localTarget, root, p),
		}
	}), nil
}

// inHiddenDir reports whether p lies below a dot-directory under root.
func inHiddenDir(root, p string) bool {
	rel := strings.TrimPrefix(strings.TrimPrefix(path.Clean(p), root), "/")
	segments := strings.Split(rel, "/")
	for _, s := range segments[:len(segments)-1] {
		if strings.HasPrefix(s, ".") {
			return true
		}
	}
	return false
}

func (e *Executor) downloadOne(ctx context.Context, item downloadItem, localTarget string, directory bool, opts DownloadOptions) Outcome {
	o := Outcome{Entry: FileEntry{RelPath: item.rel}, Source: item.remote}
	if err := ctx.Err(); err != nil {
		return failed(o, fmt.Errorf("download cancelled: %w", err))
	}

	if opts.DryRun {
		o.Destination = item.dest
		if !directory {
			o.Destination = e.Resolver.DownloadTarget(item.remote, localTarget)
		}
		before := e.Remote.LastError()
		size, err := e.Remote.FileSize(ctx, item.remote)
		if err != nil {
			return e.remoteFailed(o, err, before)
		}
		o.Entry.Size = size
		return succeeded(o, size, "dry run")
	}

	if directory {
		o.Destination = item.dest
		dir := filepath.Dir(item.dest)
		if err := e.Local.MkdirAll(dir, 0755); err != nil {
			return failed(o, fmt.Errorf("failed to create directory %s: %w", dir, err))
		}
	} else {
		dest, err := e.Resolver.ResolveDownload(item.remote, localTarget)
		if err != nil {
			return failed(o, err)
		}
		o.Destination = dest
	}

	if err := checkWritable(e.Local, filepath.Dir(o.Destination)); err != nil {
		return failed(o, &NotWritableError{Dir: filepath.Dir(o.Destination), Err: err})
	}

	before := e.Remote.LastError()
	data, err := e.Remote.ReadFile(ctx, item.remote)
	if err != nil {
		return e.remoteFailed(o, err, before)
	}
	if err := afero.WriteFile(e.Local, o.Destination, data, 0644); err != nil {
		return failed(o, fmt.Errorf("failed to write local file: %w", err))
	}

	o.Entry.Path = o.Destination
	o.Entry.Size = int64(len(data))
	return succeeded(o, int64(len(data)), "")
}
