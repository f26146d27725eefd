package container

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/epochs"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/logging"
	"github.com/neurokit/neurokit-go/internal/metadata"
	obsmetrics "github.com/neurokit/neurokit-go/internal/observability/metrics"
)

// Serializer writes and reads epoch stores as chunked container files.
type Serializer struct {
	metrics *obsmetrics.ContainerMetrics
	log     *slog.Logger
}

// New returns a Serializer. metrics may be nil.
func New(metrics *obsmetrics.ContainerMetrics) *Serializer {
	return &Serializer{
		metrics: metrics,
		log:     logging.ForService("container"),
	}
}

// WriteOptions configures a save. Zero values fall back to the
// configured container settings.
type WriteOptions struct {
	// MaxFileSize is the per-file byte budget; 0 disables splitting.
	MaxFileSize int64
	// SplitNaming is "legacy" or "structured"; empty uses the setting.
	SplitNaming string
	// MaxSplits caps the number of chunk files a save may plan.
	MaxSplits int
	// Overwrite permits replacing existing destination files.
	Overwrite bool
}

// snapshot is everything a write needs, captured once up front so the
// chunks are consistent even though the store stays live.
type snapshot struct {
	hdr       header
	events    []events.Event
	ids       events.IDMap
	selection []int
	dropLog   [][]string
	meta      *metadata.Table
	anns      []annotations.Annotation
	hasAnns   bool
	rows      [][]float64 // per epoch, channels*times flattened
}

// Write persists the store at path, splitting into budget-sized chunks
// when needed. It returns the files written, in chain order. The store
// is materialized first; a failed write leaves no partial chunk set and
// never clobbers existing destination files.
func (s *Serializer) Write(st *epochs.Store, path string, opts WriteOptions) ([]string, error) {
	paths, err := s.write(st, path, opts)
	if err != nil {
		s.metrics.RecordWriteError(errors.CategoryOf(err))
		return nil, err
	}
	s.metrics.RecordSave(len(paths) > 1)
	return paths, nil
}

func (s *Serializer) write(st *epochs.Store, path string, opts WriteOptions) ([]string, error) {
	cfg := conf.Setting().Container
	if opts.SplitNaming == "" {
		opts.SplitNaming = cfg.SplitNaming
	}
	if opts.MaxSplits == 0 {
		opts.MaxSplits = cfg.MaxSplits
	}

	if err := st.Load(); err != nil {
		return nil, err
	}

	snap, err := s.capture(st)
	if err != nil {
		return nil, err
	}

	// Each epoch costs its row-index prefix plus the flattened samples.
	perEpoch := 4 + int64(st.NChannels()*st.NTimes())*8

	nChunks := 1
	if opts.MaxFileSize > 0 {
		overhead, err := s.overheadBytes(snap, path, opts)
		if err != nil {
			return nil, err
		}
		capacity := opts.MaxFileSize - overhead
		if capacity < perEpoch {
			return nil, errors.Newf("byte budget %d is too small to safely split: structural overhead is %d bytes and each epoch needs %d",
				opts.MaxFileSize, overhead, perEpoch).
				Category(errors.CategoryLimit).
				Build()
		}
		epochsPerChunk := int(capacity / perEpoch)
		if len(snap.rows) > 0 {
			nChunks = (len(snap.rows) + epochsPerChunk - 1) / epochsPerChunk
		}
		if nChunks > opts.MaxSplits {
			return nil, errors.Newf("saving with byte budget %d would result in writing %d files (limit %d)",
				opts.MaxFileSize, nChunks, opts.MaxSplits).
				Category(errors.CategoryLimit).
				Build()
		}
	}

	names, err := chunkNames(path, nChunks, opts.SplitNaming)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if _, statErr := os.Stat(name); statErr == nil && !opts.Overwrite {
			return nil, errors.Newf("destination %q exists and overwrite is not enabled", name).
				Category(errors.CategoryConflict).
				Build()
		}
	}

	snap.hdr.NChunks = uint32(nChunks)
	perChunk := len(snap.rows)
	if nChunks > 1 {
		perChunk = (len(snap.rows) + nChunks - 1) / nChunks
	}

	// Render every chunk before any destination is touched.
	bufs := make([]*bytes.Buffer, nChunks)
	for ci := 0; ci < nChunks; ci++ {
		lo := ci * perChunk
		hi := lo + perChunk
		if hi > len(snap.rows) {
			hi = len(snap.rows)
		}
		next := ""
		if ci+1 < nChunks {
			next = filepath.Base(names[ci+1])
		}
		buf, err := renderChunk(snap, uint32(ci), lo, hi, next)
		if err != nil {
			return nil, err
		}
		if opts.MaxFileSize > 0 && int64(buf.Len()) > opts.MaxFileSize {
			return nil, errors.Newf("planned chunk %d is %d bytes, exceeding the %d byte budget",
				ci, buf.Len(), opts.MaxFileSize).
				Category(errors.CategorySerialization).
				Build()
		}
		bufs[ci] = buf
	}

	// Write-then-commit: stage every chunk as a temp file in the target
	// directory, then rename the full set.
	temps := make([]string, 0, nChunks)
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}
	for ci, buf := range bufs {
		tmp, err := stageChunk(names[ci], buf.Bytes())
		if err != nil {
			cleanup()
			return nil, err
		}
		temps = append(temps, tmp)
	}
	for ci, tmp := range temps {
		if err := os.Rename(tmp, names[ci]); err != nil {
			cleanup()
			return nil, errors.Wrap(err).
				Category(errors.CategoryFileIO).
				FileContext(names[ci], int64(bufs[ci].Len())).
				Build()
		}
		s.metrics.RecordFileWritten(int64(bufs[ci].Len()))
	}

	s.log.Info("epoch store written",
		"path", path, "chunks", nChunks, "epochs", len(snap.rows))
	return names, nil
}

// capture snapshots the store for writing.
func (s *Serializer) capture(st *epochs.Store) (*snapshot, error) {
	data, err := st.GetData(epochs.GetDataOptions{})
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, len(data))
	for e, epoch := range data {
		flat := make([]float64, 0, st.NChannels()*st.NTimes())
		for _, ch := range epoch {
			flat = append(flat, ch...)
		}
		rows[e] = flat
	}

	info := st.Info()
	snap := &snapshot{
		hdr: header{
			ID:          st.ID(),
			SFreq:       info.SFreq,
			RawSFreq:    st.RawSFreq(),
			TMin:        st.TMin(),
			FirstSamp:   info.FirstSamp,
			Lowpass:     info.Lowpass,
			Highpass:    info.Highpass,
			Applied:     st.BaselineApplied(),
			Cropped:     st.BaselineCropped(),
			Channels:    info.Channels,
			TotalEpochs: uint32(st.NEpochs()),
			NTimes:      uint32(st.NTimes()),
		},
		events:    st.Events(),
		ids:       st.EventIDs(),
		selection: st.Selection(),
		dropLog:   st.GetDropLog(),
		meta:      st.Metadata(),
		rows:      rows,
	}
	if b := st.BaselineWindow(); b != nil {
		snap.hdr.HasBaseline = true
		snap.hdr.BaselineMin = b.BMin
		snap.hdr.BaselineMax = b.BMax
	}
	if provider := st.Annotations(); provider != nil {
		snap.anns = provider.All()
		snap.hasAnns = true
	}
	return snap, nil
}

// overheadBytes prices a chunk's structural cost: everything except the
// per-epoch payload, using the longest chunk name the naming scheme can
// produce so the next-pointer is never underestimated.
func (s *Serializer) overheadBytes(snap *snapshot, path string, opts WriteOptions) (int64, error) {
	worstNames, err := chunkNames(path, 2, opts.SplitNaming)
	if err != nil {
		return 0, err
	}
	longest := ""
	for _, n := range worstNames {
		base := filepath.Base(n)
		if len(base) > len(longest) {
			longest = base
		}
	}
	// Width growth past the zero-padded index is bounded; allow for the
	// largest permitted split count.
	longest += fmt.Sprintf("%d", opts.MaxSplits)

	cw := &countingWriter{}
	e := &enc{w: cw}
	writePreamble(e)
	writeHeader(e, snap.hdr)
	writeEvents(e, snap.events, snap.ids)
	writeSelection(e, snap.selection)
	writeDropLog(e, snap.dropLog)
	writeMetadata(e, snap.meta)
	writeAnnotations(e, snap.anns, snap.hasAnns)
	writeData(e, chunkPayload{})
	writeNext(e, longest)
	writeEnd(e)
	if e.err != nil {
		return 0, e.err
	}
	return cw.n, nil
}

// renderChunk serializes one chunk to memory.
func renderChunk(snap *snapshot, index uint32, lo, hi int, next string) (*bytes.Buffer, error) {
	hdr := snap.hdr
	hdr.ChunkIndex = index

	chunk := chunkPayload{}
	for e := lo; e < hi; e++ {
		chunk.Rows = append(chunk.Rows, uint32(e))
		chunk.Data = append(chunk.Data, snap.rows[e])
	}

	var buf bytes.Buffer
	e := &enc{w: &buf}
	writePreamble(e)
	writeHeader(e, hdr)
	writeEvents(e, snap.events, snap.ids)
	writeSelection(e, snap.selection)
	writeDropLog(e, snap.dropLog)
	writeMetadata(e, snap.meta)
	writeAnnotations(e, snap.anns, snap.hasAnns)
	writeData(e, chunk)
	writeNext(e, next)
	writeEnd(e)
	if e.err != nil {
		return nil, e.err
	}
	return &buf, nil
}

// stageChunk writes data to a temp file next to dest and returns the
// temp path.
func stageChunk(dest string, data []byte) (string, error) {
	dir := filepath.Dir(dest)
	f, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			Context("destination", dest).
			Build()
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			FileContext(tmp, int64(len(data))).
			Build()
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			FileContext(tmp, int64(len(data))).
			Build()
	}
	return tmp, nil
}
