package series

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func sample(t *testing.T) *Series {
	s := New()
	require.NoError(t, s.Append(entry(t, jan1, "29010.5", jan1+100)))
	require.NoError(t, s.Append(entry(t, jan1+1800, "29050", 0)))
	require.NoError(t, s.Append(entry(t, jan1+5400, "29100.25", jan1+5400+1799)))
	return s
}

func TestPersist(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample(t).Persist(&buf))
	assert.Equal(t, "1609459200,29010.50,1609459300\n1609461000,29050.00\n1609464600,29100.25,1609466399\n", buf.String())
}

func TestLoadRoundTrip(t *testing.T) {
	in := "1609459200,29010.50,1609459300\n1609461000,29050.00\n1609464600,29100.25,1609466399\n"
	s, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.True(t, sample(t).Equal(s))

	var out bytes.Buffer
	require.NoError(t, s.Persist(&out))
	assert.Equal(t, in, out.String())
}

func TestLoadEmpty(t *testing.T) {
	s, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		row    int
		reason string
	}{
		{
			name:   "duplicate interval",
			input:  "1609459200,29010.50\n1609459200,29010.50\n",
			row:    2,
			reason: "duplicate interval 1609459200",
		},
		{
			name:   "out of order",
			input:  "1609461000,29010.50\n1609459200,29000.00\n",
			row:    2,
			reason: "row out of order",
		},
		{
			name:   "unaligned",
			input:  "1609459201,29010.50\n",
			row:    1,
			reason: "unaligned interval start",
		},
		{
			name:   "bad start",
			input:  "1609459200,1\nnope,29010.50\n",
			row:    2,
			reason: "malformed interval start",
		},
		{
			name:   "bad price",
			input:  "1609459200,lots\n",
			row:    1,
			reason: "malformed price",
		},
		{
			name:   "too many decimals",
			input:  "1609459200,29010.50\n1609461000,29010.505\n",
			row:    2,
			reason: "price has more than 2 decimal places",
		},
		{
			name:   "zero price",
			input:  "1609459200,0.00\n",
			row:    1,
			reason: "non-positive price",
		},
		{
			name:   "field count",
			input:  "1609459200\n",
			row:    1,
			reason: "expected 2 or 3 fields, got 1",
		},
		{
			name:   "bad trade timestamp",
			input:  "1609459200,1.00,x\n",
			row:    1,
			reason: "malformed trade timestamp",
		},
		{
			name:   "trade outside interval",
			input:  "1609459200,1.00,1609461000\n",
			row:    1,
			reason: "trade timestamp 1609461000 outside its interval",
		},
		{
			name:   "bad quoting",
			input:  "1609459200,\"1.00\n",
			row:    1,
			reason: "malformed row",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			var cerr *CorruptStoreError
			require.True(t, errors.As(err, &cerr), "expected CorruptStoreError, got %v", err)
			assert.Equal(t, tt.row, cerr.Row)
			assert.Equal(t, tt.reason, cerr.Reason)
		})
	}
}

func TestLoadDuplicateWrapsOutOfOrder(t *testing.T) {
	_, err := Load(strings.NewReader("1609459200,29010.50\n1609459200,29010.50\n"))
	var oerr *OutOfOrderError
	assert.True(t, errors.As(err, &oerr))
}

func TestMsgpackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample(t).EncodeMsgpack(&buf))

	s, err := DecodeMsgpack(&buf)
	require.NoError(t, err)
	assert.True(t, sample(t).Equal(s))
}

func TestMsgpackCorrupt(t *testing.T) {
	b, err := msgpack.Marshal([]interface{}{
		[]interface{}{jan1, "29010.50"},
		[]interface{}{jan1, "29010.50"},
	})
	require.NoError(t, err)

	_, err = DecodeMsgpack(bytes.NewReader(b))
	var cerr *CorruptStoreError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 2, cerr.Row)

	b, err = msgpack.Marshal([]interface{}{[]interface{}{jan1}})
	require.NoError(t, err)
	_, err = DecodeMsgpack(bytes.NewReader(b))
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "entry must have 2 or 3 elements", cerr.Reason)
}

func TestMsgpackStrictFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample(t).EncodeMsgpack(&buf))
	buf.WriteByte(0xc0)

	_, err := DecodeMsgpack(&buf)
	var cerr *CorruptStoreError
	require.True(t, errors.As(err, &cerr), "expected CorruptStoreError, got %v", err)
	assert.Equal(t, "trailing data after last entry", cerr.Reason)

	b, err := msgpack.Marshal([]interface{}(nil))
	require.NoError(t, err)
	_, err = DecodeMsgpack(bytes.NewReader(b))
	require.True(t, errors.As(err, &cerr), "expected CorruptStoreError, got %v", err)
	assert.Equal(t, "malformed snapshot header", cerr.Reason)

	buf.Reset()
	require.NoError(t, New().EncodeMsgpack(&buf))
	s, err := DecodeMsgpack(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, CSV, FormatOf("prices.csv"))
	assert.Equal(t, CSV, FormatOf("prices"))
	assert.Equal(t, Msgpack, FormatOf("/data/prices.MSGPACK"))
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"prices.csv", "prices.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			s, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, 0, s.Len())

			require.NoError(t, WriteFile(path, sample(t)))
			got, err := LoadFile(path)
			require.NoError(t, err)
			assert.True(t, sample(t).Equal(got))

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary file left behind")
		})
	}
}

func TestLoadFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("1609459200,1\n1609459200,1\n"), 0o644))

	_, err := LoadFile(path)
	var cerr *CorruptStoreError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, err.Error(), path)
}

func TestAtomicWriteFailureKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("1609459200,1.00\n"), 0o644))

	err := AtomicWrite(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, "partial"); err != nil {
			return err
		}
		return errors.New("disk full")
	})
	assert.EqualError(t, err, "disk full")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1609459200,1.00\n", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	ts := jan1 + 10
	require.NoError(t, b.Add(jan1, "1.5", &ts))
	require.NoError(t, b.Add(jan1+1800, "2", nil))
	assert.Equal(t, 2, b.Rows())
	assert.Equal(t, "1609459200,1.50,1609459210\n1609461000,2.00\n", func() string {
		var buf bytes.Buffer
		require.NoError(t, b.Series().Persist(&buf))
		return buf.String()
	}())
}
