package container

import (
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/neurokit/neurokit-go/internal/annotations"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/events"
	"github.com/neurokit/neurokit-go/internal/metadata"
	"github.com/neurokit/neurokit-go/internal/source"
)

// A container file is the magic, a format version, then a sequence of
// length-prefixed tagged blocks terminated by an end block. All integers
// are little-endian; strings are uint32-length-prefixed UTF-8.
//
//	file  := "NSEG" version:uint16 block* end
//	block := tag:[4]byte length:uint64 payload
//
// Every chunk of a split set repeats the header, events, selection,
// drop-log, metadata and annotations blocks; only the data block differs
// per chunk. The next block names the following chunk, empty in the last.
var magic = [4]byte{'N', 'S', 'E', 'G'}

const formatVersion uint16 = 1

var (
	tagHeader      = [4]byte{'H', 'D', 'R', 0}
	tagEvents      = [4]byte{'E', 'V', 'T', 0}
	tagSelection   = [4]byte{'S', 'E', 'L', 0}
	tagDropLog     = [4]byte{'D', 'L', 'G', 0}
	tagMetadata    = [4]byte{'M', 'E', 'T', 0}
	tagAnnotations = [4]byte{'A', 'N', 'N', 0}
	tagData        = [4]byte{'D', 'A', 'T', 0}
	tagNext        = [4]byte{'N', 'X', 'T', 0}
	tagEnd         = [4]byte{'E', 'N', 'D', 0}
)

// Event samples are stored as their low 32 bits. Reads reconstruct the
// full value with a monotonic wraparound offset, so any non-decreasing
// sample sequence whose consecutive gaps stay under 2^32 round-trips.
const sampleWrap = int64(1) << 32

// header carries everything about the store except the sample payload.
type header struct {
	ID          uuid.UUID
	SFreq       float64
	RawSFreq    float64
	TMin        float64
	FirstSamp   int64
	Lowpass     float64
	Highpass    float64
	HasBaseline bool
	BaselineMin float64
	BaselineMax float64
	Applied     bool
	Cropped     bool
	Channels    []source.Channel
	TotalEpochs uint32
	NTimes      uint32
	ChunkIndex  uint32
	NChunks     uint32
}

// chunkPayload is one chunk's share of the epoch rows.
type chunkPayload struct {
	Rows []uint32    // global row indices, ascending
	Data [][]float64 // per row, nc*nt samples flattened channel-major
}

// --- encoder ---

// enc writes primitives with a sticky error, the usual pattern for
// sequential binary emit.
type enc struct {
	w   io.Writer
	n   int64
	err error
}

func (e *enc) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	e.err = err
}

func (e *enc) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.write(b[:])
}

func (e *enc) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.write(b[:])
}

func (e *enc) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.write(b[:])
}

func (e *enc) i64(v int64) { e.u64(uint64(v)) }

func (e *enc) f64(v float64) { e.u64(math.Float64bits(v)) }

func (e *enc) str(s string) {
	e.u32(uint32(len(s)))
	e.write([]byte(s))
}

func (e *enc) bool(v bool) {
	if v {
		e.write([]byte{1})
	} else {
		e.write([]byte{0})
	}
}

// block emits one tagged block. The payload is produced by fn into a
// counting pass first when the caller needs exact sizes; here the
// payload bytes are buffered through a nested encoder writing to the
// same writer is impossible without the length up front, so fn renders
// into memory.
func (e *enc) block(tag [4]byte, fn func(*enc)) {
	if e.err != nil {
		return
	}
	var buf payloadBuffer
	inner := &enc{w: &buf}
	fn(inner)
	if inner.err != nil {
		e.err = inner.err
		return
	}
	e.write(tag[:])
	e.u64(uint64(len(buf)))
	e.write(buf)
}

// payloadBuffer is a minimal in-memory sink for block payloads.
type payloadBuffer []byte

func (b *payloadBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

// countingWriter measures output without retaining it; the split planner
// uses it to price the structural overhead of a chunk.
type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

func writePreamble(e *enc) {
	e.write(magic[:])
	e.u16(formatVersion)
}

func writeHeader(e *enc, h header) {
	e.block(tagHeader, func(p *enc) {
		p.write(h.ID[:])
		p.f64(h.SFreq)
		p.f64(h.RawSFreq)
		p.f64(h.TMin)
		p.i64(h.FirstSamp)
		p.f64(h.Lowpass)
		p.f64(h.Highpass)
		p.bool(h.HasBaseline)
		p.f64(h.BaselineMin)
		p.f64(h.BaselineMax)
		p.bool(h.Applied)
		p.bool(h.Cropped)
		p.u32(uint32(len(h.Channels)))
		for _, ch := range h.Channels {
			p.str(ch.Name)
			p.str(string(ch.Type))
			p.str(ch.Unit)
			p.f64(ch.Cal)
		}
		p.u32(h.TotalEpochs)
		p.u32(h.NTimes)
		p.u32(h.ChunkIndex)
		p.u32(h.NChunks)
	})
}

func writeEvents(e *enc, evs []events.Event, ids events.IDMap) {
	e.block(tagEvents, func(p *enc) {
		p.u32(uint32(len(ids)))
		for _, name := range sortedNames(ids) {
			p.str(name)
			p.u32(uint32(ids[name]))
		}
		p.u32(uint32(len(evs)))
		for _, ev := range evs {
			p.u32(uint32(ev.Sample & 0xffffffff))
			p.u32(uint32(ev.Prior))
			p.u32(uint32(ev.Code))
		}
	})
}

func writeSelection(e *enc, selection []int) {
	e.block(tagSelection, func(p *enc) {
		p.u32(uint32(len(selection)))
		for _, idx := range selection {
			p.u64(uint64(idx))
		}
	})
}

func writeDropLog(e *enc, dl [][]string) {
	e.block(tagDropLog, func(p *enc) {
		p.u32(uint32(len(dl)))
		for _, entry := range dl {
			p.u16(uint16(len(entry)))
			for _, reason := range entry {
				p.str(reason)
			}
		}
	})
}

func writeMetadata(e *enc, t *metadata.Table) {
	e.block(tagMetadata, func(p *enc) {
		if t == nil {
			p.bool(false)
			return
		}
		p.bool(true)
		cols := t.Columns()
		p.u32(uint32(len(cols)))
		for _, col := range cols {
			p.str(col.Name)
			p.str(string(col.Kind))
		}
		p.u32(uint32(t.NRows()))
		for ri := 0; ri < t.NRows(); ri++ {
			row := t.Row(ri)
			for _, col := range cols {
				writeValue(p, row[col.Name])
			}
		}
	})
}

func writeValue(p *enc, v any) {
	switch val := v.(type) {
	case nil:
		p.write([]byte{0})
	case bool:
		p.write([]byte{1})
		p.bool(val)
	case string:
		p.write([]byte{2})
		p.str(val)
	case float64:
		p.write([]byte{3})
		p.f64(val)
	case int:
		p.write([]byte{3})
		p.f64(float64(val))
	case int64:
		p.write([]byte{3})
		p.f64(float64(val))
	default:
		p.err = errors.Newf("unserializable metadata value of type %T", v).
			Category(errors.CategorySerialization).
			Build()
	}
}

func writeAnnotations(e *enc, anns []annotations.Annotation, present bool) {
	e.block(tagAnnotations, func(p *enc) {
		p.bool(present)
		if !present {
			return
		}
		p.u32(uint32(len(anns)))
		for _, a := range anns {
			p.f64(a.Onset)
			p.f64(a.Duration)
			p.str(a.Description)
		}
	})
}

func writeData(e *enc, chunk chunkPayload) {
	e.block(tagData, func(p *enc) {
		p.u32(uint32(len(chunk.Rows)))
		for i, row := range chunk.Rows {
			p.u32(row)
			for _, v := range chunk.Data[i] {
				p.f64(v)
			}
		}
	})
}

func writeNext(e *enc, next string) {
	e.block(tagNext, func(p *enc) {
		p.str(next)
	})
}

func writeEnd(e *enc) {
	e.write(tagEnd[:])
	e.u64(0)
}

func sortedNames(ids events.IDMap) []string {
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- decoder ---

// dec reads primitives with a sticky error and counts consumed bytes so
// block framing can be verified against the declared lengths.
type dec struct {
	r   io.Reader
	n   int64
	err error
}

func (d *dec) read(p []byte) {
	if d.err != nil {
		return
	}
	var n int
	n, d.err = io.ReadFull(d.r, p)
	d.n += int64(n)
}

func (d *dec) skip(n int64) {
	if d.err != nil {
		return
	}
	var c int64
	c, d.err = io.CopyN(io.Discard, d.r, n)
	d.n += c
}

func (d *dec) u16() uint16 {
	var b [2]byte
	d.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (d *dec) u32() uint32 {
	var b [4]byte
	d.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (d *dec) u64() uint64 {
	var b [8]byte
	d.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (d *dec) i64() int64 { return int64(d.u64()) }

func (d *dec) f64() float64 { return math.Float64frombits(d.u64()) }

func (d *dec) str() string {
	n := d.u32()
	if d.err != nil {
		return ""
	}
	b := make([]byte, n)
	d.read(b)
	return string(b)
}

func (d *dec) bool() bool {
	var b [1]byte
	d.read(b[:])
	return b[0] != 0
}

func readPreamble(d *dec) error {
	var m [4]byte
	d.read(m[:])
	if d.err != nil {
		return d.err
	}
	if m != magic {
		return errors.Newf("not a container file: bad magic %q", m[:]).
			Category(errors.CategorySerialization).
			Build()
	}
	v := d.u16()
	if d.err != nil {
		return d.err
	}
	if v != formatVersion {
		return errors.Newf("unsupported container format version %d, expected %d", v, formatVersion).
			Category(errors.CategorySerialization).
			Build()
	}
	return nil
}

func readHeader(d *dec) header {
	var h header
	d.read(h.ID[:])
	h.SFreq = d.f64()
	h.RawSFreq = d.f64()
	h.TMin = d.f64()
	h.FirstSamp = d.i64()
	h.Lowpass = d.f64()
	h.Highpass = d.f64()
	h.HasBaseline = d.bool()
	h.BaselineMin = d.f64()
	h.BaselineMax = d.f64()
	h.Applied = d.bool()
	h.Cropped = d.bool()
	nc := d.u32()
	h.Channels = make([]source.Channel, nc)
	for i := range h.Channels {
		h.Channels[i].Name = d.str()
		h.Channels[i].Type = source.ChannelType(d.str())
		h.Channels[i].Unit = d.str()
		h.Channels[i].Cal = d.f64()
	}
	h.TotalEpochs = d.u32()
	h.NTimes = d.u32()
	h.ChunkIndex = d.u32()
	h.NChunks = d.u32()
	return h
}

// readEvents returns the raw on-disk events; sample reconstruction is the
// reader's job since it needs overflow tracking across the whole list.
func readEvents(d *dec) (raw []events.Event, ids events.IDMap) {
	nIDs := d.u32()
	ids = make(events.IDMap, nIDs)
	for i := uint32(0); i < nIDs && d.err == nil; i++ {
		name := d.str()
		ids[name] = int32(d.u32())
	}
	n := d.u32()
	raw = make([]events.Event, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		raw = append(raw, events.Event{
			Sample: int64(d.u32()),
			Prior:  int32(d.u32()),
			Code:   int32(d.u32()),
		})
	}
	return raw, ids
}

func readSelection(d *dec) []int {
	n := d.u32()
	sel := make([]int, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		sel = append(sel, int(d.u64()))
	}
	return sel
}

func readDropLog(d *dec) [][]string {
	n := d.u32()
	dl := make([][]string, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		nr := d.u16()
		var entry []string
		for j := uint16(0); j < nr && d.err == nil; j++ {
			entry = append(entry, d.str())
		}
		dl = append(dl, entry)
	}
	return dl
}

func readMetadata(d *dec) (*metadata.Table, error) {
	if !d.bool() {
		return nil, d.err
	}
	nCols := d.u32()
	cols := make([]metadata.Column, nCols)
	for i := range cols {
		cols[i].Name = d.str()
		cols[i].Kind = metadata.Kind(d.str())
	}
	nRows := d.u32()
	rows := make([][]any, 0, nRows)
	for ri := uint32(0); ri < nRows && d.err == nil; ri++ {
		row := make([]any, len(cols))
		for ci := range cols {
			row[ci] = readValue(d)
		}
		rows = append(rows, row)
	}
	if d.err != nil {
		return nil, d.err
	}
	return metadata.New(cols, rows)
}

func readValue(d *dec) any {
	var tag [1]byte
	d.read(tag[:])
	switch tag[0] {
	case 0:
		return nil
	case 1:
		return d.bool()
	case 2:
		return d.str()
	case 3:
		return d.f64()
	default:
		if d.err == nil {
			d.err = errors.Newf("invalid metadata value tag %d", tag[0]).
				Category(errors.CategorySerialization).
				Build()
		}
		return nil
	}
}

func readAnnotations(d *dec) (anns []annotations.Annotation, present bool) {
	if !d.bool() {
		return nil, false
	}
	n := d.u32()
	anns = make([]annotations.Annotation, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		anns = append(anns, annotations.Annotation{
			Onset:       d.f64(),
			Duration:    d.f64(),
			Description: d.str(),
		})
	}
	return anns, true
}

func readData(d *dec, samplesPerRow int) chunkPayload {
	n := d.u32()
	chunk := chunkPayload{
		Rows: make([]uint32, 0, n),
		Data: make([][]float64, 0, n),
	}
	for i := uint32(0); i < n && d.err == nil; i++ {
		chunk.Rows = append(chunk.Rows, d.u32())
		row := make([]float64, samplesPerRow)
		for j := range row {
			row[j] = d.f64()
		}
		chunk.Data = append(chunk.Data, row)
	}
	return chunk
}
