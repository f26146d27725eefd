package container

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/epochs"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/metadata"
	"github.com/neurokit/neurokit-go/internal/source"
)

// chunkFile is one parsed chunk.
type chunkFile struct {
	hdr     header
	events  []events.Event // samples still raw low-32-bit values
	ids     events.IDMap
	sel     []int
	dropLog [][]string
	meta    *metadata.Table
	anns    []annotations.Annotation
	hasAnns bool
	data    chunkPayload
	next    string
}

// Read loads an epoch store from path, following the next-file pointers
// across a split set. A missing continuation chunk is a hard error;
// files beyond the last pointer are ignored. At most one chunk file is
// open at a time.
func (s *Serializer) Read(path string) (*epochs.Store, error) {
	var chunks []chunkFile
	seen := map[string]struct{}{}
	current := path
	for {
		abs := current
		if _, dup := seen[abs]; dup {
			return nil, errors.Newf("chunk chain loops back to %q", abs).
				Category(errors.CategorySerialization).
				Build()
		}
		seen[abs] = struct{}{}

		chunk, err := s.readChunkFile(current)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
		if chunk.next == "" {
			break
		}
		current = filepath.Join(filepath.Dir(current), chunk.next)
		if _, err := os.Stat(current); err != nil {
			return nil, errors.Wrap(err).
				Category(errors.CategoryFileIO).
				Context("missing_chunk", current).
				Context("referenced_by", abs).
				Build()
		}
	}
	return s.assemble(path, chunks)
}

// readChunkFile parses a single chunk, closing the file before returning.
func (s *Serializer) readChunkFile(path string) (*chunkFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	chunk, err := parseChunk(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategorySerialization).
			Context("path", path).
			Build()
	}
	s.metrics.RecordFileRead()
	return chunk, nil
}

// parseChunk reads the block sequence of one chunk. Unknown tags are
// skipped for forward compatibility; the header must precede the data
// block since the data framing depends on it.
func parseChunk(r *bufio.Reader) (*chunkFile, error) {
	d := &dec{r: r}
	if err := readPreamble(d); err != nil {
		return nil, err
	}

	chunk := &chunkFile{}
	sawHeader := false
	for {
		var tag [4]byte
		d.read(tag[:])
		length := d.u64()
		if d.err != nil {
			return nil, d.err
		}
		blockStart := d.n

		switch tag {
		case tagEnd:
			if !sawHeader {
				return nil, errors.Newf("chunk has no header block").
					Category(errors.CategorySerialization).
					Build()
			}
			if length != 0 {
				return nil, errors.Newf("end block declares %d payload bytes, expected none", length).
					Category(errors.CategorySerialization).
					Build()
			}
			return chunk, nil
		case tagHeader:
			chunk.hdr = readHeader(d)
			sawHeader = true
		case tagEvents:
			chunk.events, chunk.ids = readEvents(d)
		case tagSelection:
			chunk.sel = readSelection(d)
		case tagDropLog:
			chunk.dropLog = readDropLog(d)
		case tagMetadata:
			meta, err := readMetadata(d)
			if err != nil {
				return nil, err
			}
			chunk.meta = meta
		case tagAnnotations:
			chunk.anns, chunk.hasAnns = readAnnotations(d)
		case tagData:
			if !sawHeader {
				return nil, errors.Newf("data block before header").
					Category(errors.CategorySerialization).
					Build()
			}
			chunk.data = readData(d, int(chunk.hdr.NTimes)*len(chunk.hdr.Channels))
		case tagNext:
			chunk.next = d.str()
		default:
			d.skip(int64(length))
		}
		if d.err != nil {
			return nil, d.err
		}
		if consumed := d.n - blockStart; consumed != int64(length) {
			return nil, errors.Newf("block %q declares %d payload bytes but decoding consumed %d", tag[:], length, consumed).
				Category(errors.CategorySerialization).
				Build()
		}
	}
}

// assemble reconstructs the store from the parsed chunk chain.
func (s *Serializer) assemble(path string, chunks []chunkFile) (*epochs.Store, error) {
	first := chunks[0]
	nc := len(first.hdr.Channels)
	nt := int(first.hdr.NTimes)
	total := int(first.hdr.TotalEpochs)

	for i, chunk := range chunks {
		if chunk.hdr.ID != first.hdr.ID {
			return nil, errors.Newf("chunk %d belongs to store %s, expected %s",
				i, chunk.hdr.ID, first.hdr.ID).
				Category(errors.CategorySerialization).
				Build()
		}
		if chunk.hdr.ChunkIndex != uint32(i) {
			return nil, errors.Newf("chunk %d carries index %d; the chain is out of order",
				i, chunk.hdr.ChunkIndex).
				Category(errors.CategorySerialization).
				Build()
		}
	}
	if int(first.hdr.NChunks) != len(chunks) {
		return nil, errors.Newf("chain has %d chunks, header promises %d", len(chunks), first.hdr.NChunks).
			Category(errors.CategorySerialization).
			Build()
	}

	// Gather rows by global index.
	rows := make([][]float64, total)
	for _, chunk := range chunks {
		for i, rowIdx := range chunk.data.Rows {
			if int(rowIdx) >= total {
				return nil, errors.Newf("chunk carries epoch row %d, store has %d", rowIdx, total).
					Category(errors.CategorySerialization).
					Build()
			}
			rows[rowIdx] = chunk.data.Data[i]
		}
	}
	for i, row := range rows {
		if row == nil {
			return nil, errors.Newf("epoch row %d missing from chunk set", i).
				Category(errors.CategorySerialization).
				Build()
		}
	}

	data := make([][][]float64, total)
	for e, flat := range rows {
		epoch := make([][]float64, nc)
		for ch := 0; ch < nc; ch++ {
			epoch[ch] = flat[ch*nt : (ch+1)*nt]
		}
		data[e] = epoch
	}

	evs, corrected := restoreSamples(first.events)
	if corrected {
		s.log.Warn("legacy sample overflow detected; event samples rewritten with wraparound offsets",
			"path", path)
	}

	var annsProvider annotations.Provider
	if first.hasAnns {
		set, err := annotations.New(first.anns, time.Time{})
		if err != nil {
			return nil, err
		}
		annsProvider = set
	}

	cfg := epochs.DataConfig{
		Info: source.Info{
			SFreq:     first.hdr.SFreq,
			FirstSamp: first.hdr.FirstSamp,
			Channels:  first.hdr.Channels,
			Lowpass:   first.hdr.Lowpass,
			Highpass:  first.hdr.Highpass,
		},
		RawSFreq:        first.hdr.RawSFreq,
		Data:            data,
		Events:          evs,
		IDs:             first.ids,
		TMin:            first.hdr.TMin,
		BaselineApplied: first.hdr.Applied,
		BaselineCropped: first.hdr.Cropped,
		Selection:       first.sel,
		DropLog:         first.dropLog,
		Metadata:        first.meta,
		Annotations:     annsProvider,
		ID:              first.hdr.ID,
	}
	if first.hdr.HasBaseline {
		cfg.Baseline = &epochs.Baseline{BMin: first.hdr.BaselineMin, BMax: first.hdr.BaselineMax}
	}

	st, err := epochs.NewFromData(cfg)
	if err != nil {
		return nil, err
	}
	s.log.Debug("epoch store read", "path", path, "chunks", len(chunks), "epochs", total)
	return st, nil
}

// restoreSamples rebuilds full event samples from their stored low 32
// bits. Samples must be non-decreasing in the original store; whenever a
// raw value steps backwards the wraparound offset advances. Reports
// whether any correction was applied.
func restoreSamples(raw []events.Event) ([]events.Event, bool) {
	out := make([]events.Event, len(raw))
	var offset int64
	var prev int64 = -1
	corrected := false
	for i, ev := range raw {
		sample := offset + ev.Sample
		for sample < prev {
			offset += sampleWrap
			sample += sampleWrap
			corrected = true
		}
		out[i] = events.Event{Sample: sample, Prior: ev.Prior, Code: ev.Code}
		prev = sample
	}
	return out, corrected
}
