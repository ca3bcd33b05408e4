// Package sdf implements a simple self-describing binary format for
// tensors and tensor vectors, with advisory file locking. A file is a
// header followed by named records; the endianness is fixed when the
// file is created and checked on read.
package sdf

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// Error kinds surfaced by the persistence layer.
var (
	ErrIO     = errors.New("i/o error")
	ErrFormat = errors.New("format error")
)

// Record type tags.
const (
	TagRTensor byte = iota
	TagCTensor
	TagRTensorVector
	TagCTensorVector
)

const (
	varNameSize = 64
	// The header spells the tag, the int and long sizes, the byte
	// order, and a terminator.
	headerSize = 7
)

func header(order binary.ByteOrder) [headerSize]byte {
	var h [headerSize]byte
	copy(h[:], "sdf")
	h[3] = '4'
	h[4] = '8'
	h[5] = '0'
	if order == binary.BigEndian {
		h[5] = '1'
	}
	h[6] = 0
	return h
}

// lock acquires the advisory lock of a data file by creating the
// sibling .lck file, retrying every 100 ms while another holder has it;
// after about a minute it gives up with an ErrIO timeout.
func lock(path string) (string, error) {
	lckPath := path + ".lck"
	for i := 0; ; i++ {
		f, err := os.OpenFile(lckPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return lckPath, nil
		}
		if !os.IsExist(err) {
			return "", errors.Wrap(ErrIO, err.Error())
		}
		if i > 600 {
			return "", errors.Wrap(ErrIO, "lock timeout on "+lckPath)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// OutDataFile appends records to a data file.
type OutDataFile struct {
	path  string
	lck   string
	file  *os.File
	order binary.ByteOrder
}

// NewOutDataFile opens a data file for appending, taking the advisory
// lock and writing the header when the file is new.
func NewOutDataFile(path string) (*OutDataFile, error) {
	lck, err := lock(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	_, statErr := os.Stat(path)
	existed := statErr == nil
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		os.Remove(lck)
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	out := &OutDataFile{path: path, lck: lck, file: f, order: binary.LittleEndian}
	if !existed {
		h := header(out.order)
		if _, err := f.Write(h[:]); err != nil {
			out.Close()
			return nil, errors.Wrap(ErrIO, err.Error())
		}
	}
	return out, nil
}

// Close releases the file and its lock.
func (o *OutDataFile) Close() error {
	var err error
	if o.file != nil {
		err = o.file.Close()
		o.file = nil
	}
	if o.lck != "" {
		os.Remove(o.lck)
		o.lck = ""
	}
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

func (o *OutDataFile) writeTag(name string, tag byte) error {
	var buf [varNameSize]byte
	copy(buf[:varNameSize-1], name)
	if _, err := o.file.Write(buf[:]); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	if _, err := o.file.Write([]byte{tag}); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

func (o *OutDataFile) writeInts(vs ...int64) error {
	for _, v := range vs {
		if err := binary.Write(o.file, o.order, v); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}
	}
	return nil
}

func (o *OutDataFile) writeRPayload(t *tensor.RTensor) error {
	dims := t.Dimensions()
	if err := o.writeInts(int64(len(dims))); err != nil {
		return err
	}
	for _, d := range dims {
		if err := o.writeInts(int64(d)); err != nil {
			return err
		}
	}
	if err := o.writeInts(int64(t.Size())); err != nil {
		return err
	}
	if err := binary.Write(o.file, o.order, t.RawData()); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

func (o *OutDataFile) writeCPayload(t *tensor.CTensor) error {
	dims := t.Dimensions()
	if err := o.writeInts(int64(len(dims))); err != nil {
		return err
	}
	for _, d := range dims {
		if err := o.writeInts(int64(d)); err != nil {
			return err
		}
	}
	if err := o.writeInts(int64(t.Size())); err != nil {
		return err
	}
	for _, v := range t.RawData() {
		if err := binary.Write(o.file, o.order, [2]float64{real(v), imag(v)}); err != nil {
			return errors.Wrap(ErrIO, err.Error())
		}
	}
	return nil
}

// DumpRTensor appends a named real tensor record.
func (o *OutDataFile) DumpRTensor(name string, t *tensor.RTensor) error {
	if err := o.writeTag(name, TagRTensor); err != nil {
		return err
	}
	return o.writeRPayload(t)
}

// DumpCTensor appends a named complex tensor record.
func (o *OutDataFile) DumpCTensor(name string, t *tensor.CTensor) error {
	if err := o.writeTag(name, TagCTensor); err != nil {
		return err
	}
	return o.writeCPayload(t)
}

// DumpRTensorVector appends a named list of real tensors.
func (o *OutDataFile) DumpRTensorVector(name string, ts []*tensor.RTensor) error {
	if err := o.writeTag(name, TagRTensorVector); err != nil {
		return err
	}
	if err := o.writeInts(int64(len(ts))); err != nil {
		return err
	}
	for _, t := range ts {
		if err := o.writeRPayload(t); err != nil {
			return err
		}
	}
	return nil
}

// DumpCTensorVector appends a named list of complex tensors.
func (o *OutDataFile) DumpCTensorVector(name string, ts []*tensor.CTensor) error {
	if err := o.writeTag(name, TagCTensorVector); err != nil {
		return err
	}
	if err := o.writeInts(int64(len(ts))); err != nil {
		return err
	}
	for _, t := range ts {
		if err := o.writeCPayload(t); err != nil {
			return err
		}
	}
	return nil
}

// DumpDouble appends a scalar as a one-element tensor.
func (o *OutDataFile) DumpDouble(name string, v float64) error {
	return o.DumpRTensor(name, tensor.T1([]float64{v}))
}

// InDataFile reads records back sequentially.
type InDataFile struct {
	path  string
	lck   string
	file  *os.File
	order binary.ByteOrder
}

// NewInDataFile opens a data file for reading, taking the advisory lock
// and validating the header.
func NewInDataFile(path string) (*InDataFile, error) {
	lck, err := lock(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	f, err := os.Open(path)
	if err != nil {
		os.Remove(lck)
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	in := &InDataFile{path: path, lck: lck, file: f}
	var h [headerSize]byte
	if _, err := io.ReadFull(f, h[:]); err != nil {
		in.Close()
		return nil, errors.Wrap(ErrFormat, err.Error())
	}
	want := header(binary.LittleEndian)
	switch {
	case h == want:
		in.order = binary.LittleEndian
	case h == header(binary.BigEndian):
		in.order = binary.BigEndian
	default:
		in.Close()
		return nil, errors.Wrap(ErrFormat, "bad sdf header")
	}
	return in, nil
}

// Close releases the file and its lock.
func (i *InDataFile) Close() error {
	var err error
	if i.file != nil {
		err = i.file.Close()
		i.file = nil
	}
	if i.lck != "" {
		os.Remove(i.lck)
		i.lck = ""
	}
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// readTag reads the next record name and type, verifying the expected
// name when one is demanded.
func (i *InDataFile) readTag(wantName string, wantTag byte) error {
	var buf [varNameSize]byte
	if _, err := io.ReadFull(i.file, buf[:]); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	name := string(trimNul(buf[:]))
	var tag [1]byte
	if _, err := io.ReadFull(i.file, tag[:]); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	if wantName != "" && name != wantName {
		return errors.Wrap(ErrFormat, "record name "+name+", expected "+wantName)
	}
	if tag[0] != wantTag {
		return errors.Wrap(ErrFormat, "unexpected record type")
	}
	return nil
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func (i *InDataFile) readInt() (int64, error) {
	var v int64
	if err := binary.Read(i.file, i.order, &v); err != nil {
		return 0, errors.Wrap(ErrIO, err.Error())
	}
	return v, nil
}

func (i *InDataFile) readRPayload() (*tensor.RTensor, error) {
	rank, err := i.readInt()
	if err != nil {
		return nil, err
	}
	dims := make([]int, rank)
	for k := range dims {
		d, err := i.readInt()
		if err != nil {
			return nil, err
		}
		dims[k] = int(d)
	}
	size, err := i.readInt()
	if err != nil {
		return nil, err
	}
	data := make([]float64, size)
	if err := binary.Read(i.file, i.order, data); err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	if tensor.Dimensions(dims).Size() != int(size) {
		return nil, errors.Wrap(ErrFormat, "payload size disagrees with shape")
	}
	return tensor.FromSlice(data, dims...), nil
}

func (i *InDataFile) readCPayload() (*tensor.CTensor, error) {
	rank, err := i.readInt()
	if err != nil {
		return nil, err
	}
	dims := make([]int, rank)
	for k := range dims {
		d, err := i.readInt()
		if err != nil {
			return nil, err
		}
		dims[k] = int(d)
	}
	size, err := i.readInt()
	if err != nil {
		return nil, err
	}
	raw := make([]float64, 2*size)
	if err := binary.Read(i.file, i.order, raw); err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	data := make([]complex128, size)
	for k := range data {
		data[k] = complex(raw[2*k], raw[2*k+1])
	}
	if tensor.Dimensions(dims).Size() != int(size) {
		return nil, errors.Wrap(ErrFormat, "payload size disagrees with shape")
	}
	return tensor.FromSlice(data, dims...), nil
}

// LoadRTensor reads the next record as a real tensor. A non-empty name
// demands that the record carries it.
func (i *InDataFile) LoadRTensor(name string) (*tensor.RTensor, error) {
	if err := i.readTag(name, TagRTensor); err != nil {
		return nil, err
	}
	return i.readRPayload()
}

// LoadCTensor reads the next record as a complex tensor.
func (i *InDataFile) LoadCTensor(name string) (*tensor.CTensor, error) {
	if err := i.readTag(name, TagCTensor); err != nil {
		return nil, err
	}
	return i.readCPayload()
}

// LoadRTensorVector reads the next record as a list of real tensors.
func (i *InDataFile) LoadRTensorVector(name string) ([]*tensor.RTensor, error) {
	if err := i.readTag(name, TagRTensorVector); err != nil {
		return nil, err
	}
	n, err := i.readInt()
	if err != nil {
		return nil, err
	}
	out := make([]*tensor.RTensor, n)
	for k := range out {
		if out[k], err = i.readRPayload(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadCTensorVector reads the next record as a list of complex tensors.
func (i *InDataFile) LoadCTensorVector(name string) ([]*tensor.CTensor, error) {
	if err := i.readTag(name, TagCTensorVector); err != nil {
		return nil, err
	}
	n, err := i.readInt()
	if err != nil {
		return nil, err
	}
	out := make([]*tensor.CTensor, n)
	for k := range out {
		if out[k], err = i.readCPayload(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
