package sink

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"mq-pipeline-bench/pkg/commtypes"

	"github.com/rs/zerolog/log"
)

const csvBufferSize = 16384

// CsvSink appends one row per record to a UTF-8, comma separated file. A
// header row is written only when the file starts out empty.
type CsvSink struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	writer *csv.Writer
}

var _ = Sink(&CsvSink{})

func NewCsvSink(path string) (*CsvSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv sink %s: %v", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv sink %s: %v", path, err)
	}
	buf := bufio.NewWriterSize(f, csvBufferSize)
	s := &CsvSink{
		path:   path,
		file:   f,
		buf:    buf,
		writer: csv.NewWriter(buf),
	}
	if info.Size() == 0 {
		if err := s.writer.Write(commtypes.RecordHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header %s: %v", path, err)
		}
	}
	log.Info().Str("file", path).Msg("CsvSink initialized")
	return s, nil
}

func (s *CsvSink) Name() string {
	return s.path
}

func (s *CsvSink) Append(r commtypes.Record) error {
	if err := s.writer.Write(r.Fields()); err != nil {
		return err
	}
	// csv.Writer reports buffered write failures lazily
	return s.writer.Error()
}

func (s *CsvSink) Flush() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *CsvSink) Close() error {
	flushErr := s.Flush()
	closeErr := s.file.Close()
	log.Info().Str("file", s.path).Msg("CsvSink closed")
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
