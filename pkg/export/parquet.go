// Package export writes constraint result sets to interchange formats.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/declareflow/declareflow/pkg/declare"
)

// ParquetConfig holds Parquet writer configuration.
type ParquetConfig struct {
	Compression string
}

// DefaultParquetConfig returns sensible defaults.
func DefaultParquetConfig() ParquetConfig {
	return ParquetConfig{Compression: "zstd"}
}

// ConstraintSchema returns the Arrow schema for exported constraint sets.
func ConstraintSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "type", Type: arrow.BinaryTypes.String},
		{Name: "source", Type: arrow.BinaryTypes.String},
		{Name: "target", Type: arrow.BinaryTypes.String},
		{Name: "quantifier", Type: arrow.BinaryTypes.String},
		{Name: "object_types", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		{Name: "min", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "max", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "conformance", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
}

// WriteParquet writes a constraint set as one Parquet row group.
func WriteParquet(output io.Writer, set *declare.Set, cfg ParquetConfig) error {
	allocator := memory.NewGoAllocator()
	schema := ConstraintSchema()

	var codec compress.Compression
	switch cfg.Compression {
	case "snappy":
		codec = compress.Codecs.Snappy
	case "gzip":
		codec = compress.Codecs.Gzip
	default:
		codec = compress.Codecs.Zstd
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	writer, err := pqarrow.NewFileWriter(schema, output, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	rb := array.NewRecordBuilder(allocator, schema)
	defer rb.Release()

	typeB := rb.Field(0).(*array.StringBuilder)
	sourceB := rb.Field(1).(*array.StringBuilder)
	targetB := rb.Field(2).(*array.StringBuilder)
	quantB := rb.Field(3).(*array.StringBuilder)
	typesB := rb.Field(4).(*array.ListBuilder)
	typesValB := typesB.ValueBuilder().(*array.StringBuilder)
	minB := rb.Field(5).(*array.Int64Builder)
	maxB := rb.Field(6).(*array.Int64Builder)
	confB := rb.Field(7).(*array.Float64Builder)

	for _, c := range set.Constraints {
		typeB.Append(string(c.Type))
		sourceB.Append(c.Source)
		targetB.Append(c.Target)
		quantB.Append(string(c.Quantifier))

		typesB.Append(true)
		for _, t := range c.ObjectTypes {
			typesValB.Append(t)
		}

		appendOptionalInt(minB, c.Min)
		appendOptionalInt(maxB, c.Max)
		appendOptionalFloat(confB, c.Conformance)
	}

	record := rb.NewRecord()
	defer record.Release()

	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write Parquet record: %w", err)
	}
	return writer.Close()
}

// WriteParquetFile writes a constraint set to a Parquet file on disk.
func WriteParquetFile(path string, set *declare.Set, cfg ParquetConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	if err := WriteParquet(f, set, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func appendOptionalInt(b *array.Int64Builder, v *int) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(int64(*v))
}

func appendOptionalFloat(b *array.Float64Builder, v *float64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}
