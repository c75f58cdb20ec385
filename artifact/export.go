package artifact

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/bonehead-labs/fmf/errs"
)

// Exporter writes a declared outputs[] export (spec.md §4.11 step 5)
// to wherever its sink lives: local disk in jsonl/csv/parquet, or a
// remote sink such as S3.
type Exporter interface {
	Export(ctx context.Context, records []map[string]interface{}) (string, error)
}

// NewExporter resolves a sink kind ("jsonl", "csv", "parquet", "s3",
// or an out-of-scope remote sink name) to an Exporter. destPath is a
// local file path for the local formats, or an s3://bucket/key URI
// for the s3 sink.
func NewExporter(format, destPath string) (Exporter, error) {
	switch format {
	case "jsonl":
		return jsonlExporter{path: destPath}, nil
	case "csv":
		return csvExporter{path: destPath}, nil
	case "parquet":
		return parquetExporter{path: destPath}, nil
	case "s3":
		return newS3Exporter(destPath)
	case "dynamodb", "delta", "redshift", "sharepoint_excel":
		return unsupportedExporter{kind: format}, nil
	default:
		return nil, errs.ExportError("unknown export format %q", format)
	}
}

type jsonlExporter struct{ path string }

func (e jsonlExporter) Export(ctx context.Context, records []map[string]interface{}) (string, error) {
	out := make([]interface{}, len(records))
	for i, r := range records {
		out[i] = r
	}
	return e.path, WriteJSONL(e.path, out)
}

type csvExporter struct{ path string }

func (e csvExporter) Export(ctx context.Context, records []map[string]interface{}) (string, error) {
	if err := EnsureDir(filepath.Dir(e.path)); err != nil {
		return e.path, errs.ExportErrorf(err, "creating directory for %s", e.path)
	}
	f, err := os.Create(e.path)
	if err != nil {
		return e.path, errs.ExportErrorf(err, "creating %s", e.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	cols := csvColumns(records)
	if err := w.Write(cols); err != nil {
		return e.path, errs.ExportErrorf(err, "writing csv header to %s", e.path)
	}
	for _, rec := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = fmt.Sprintf("%v", rec[c])
		}
		if err := w.Write(row); err != nil {
			return e.path, errs.ExportErrorf(err, "writing csv row to %s", e.path)
		}
	}
	return e.path, nil
}

func csvColumns(records []map[string]interface{}) []string {
	seen := map[string]bool{}
	var cols []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// parquetSchema is the column schema every export row is coerced
// into: one JSON-text column, since outputs[] records carry
// arbitrary, not statically typed, shape.
type parquetSchema struct {
	Tag string `parquet:"name=record, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type parquetExporter struct{ path string }

func (e parquetExporter) Export(ctx context.Context, records []map[string]interface{}) (string, error) {
	if err := EnsureDir(filepath.Dir(e.path)); err != nil {
		return e.path, errs.ExportErrorf(err, "creating directory for %s", e.path)
	}
	fw, err := local.NewLocalFileWriter(e.path)
	if err != nil {
		return e.path, errs.ExportErrorf(err, "opening %s", e.path)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(parquetSchema), 4)
	if err != nil {
		return e.path, errs.ExportErrorf(err, "constructing parquet writer for %s", e.path)
	}
	for _, rec := range records {
		encoded, err := json.Marshal(rec)
		if err != nil {
			return e.path, errs.ExportErrorf(err, "encoding record for %s", e.path)
		}
		if err := pw.Write(parquetSchema{Tag: string(encoded)}); err != nil {
			return e.path, errs.ExportErrorf(err, "writing parquet row to %s", e.path)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return e.path, errs.ExportErrorf(err, "finalising %s", e.path)
	}
	return e.path, nil
}

// s3Exporter uploads a jsonl rendering of records to an S3-compatible
// bucket, reusing the connector package's minio-go client shape.
type s3Exporter struct {
	client *minio.Client
	bucket string
	key    string
}

func newS3Exporter(uri string) (Exporter, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}
	endpoint := os.Getenv("FMF_S3_ENDPOINT")
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("FMF_S3_ACCESS_KEY"), os.Getenv("FMF_S3_SECRET_KEY"), ""),
		Secure: true,
	})
	if err != nil {
		return nil, errs.ExportErrorf(err, "constructing s3 export client")
	}
	return &s3Exporter{client: client, bucket: bucket, key: key}, nil
}

func (e *s3Exporter) Export(ctx context.Context, records []map[string]interface{}) (string, error) {
	tmp, err := os.CreateTemp("", "fmf-export-*.jsonl")
	if err != nil {
		return "", errs.ExportErrorf(err, "creating temp export file")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := json.NewEncoder(tmp)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return "", errs.ExportErrorf(err, "encoding export record")
		}
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", errs.ExportErrorf(err, "rewinding temp export file")
	}

	uri := "s3://" + e.bucket + "/" + e.key
	info, err := tmp.Stat()
	if err != nil {
		return uri, errs.ExportErrorf(err, "stat-ing temp export file")
	}
	_, err = e.client.PutObject(ctx, e.bucket, e.key, tmp, info.Size(), minio.PutObjectOptions{ContentType: "application/x-ndjson"})
	if err != nil {
		return uri, errs.ExportErrorf(err, "uploading export to %s", uri)
	}
	return uri, nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", "", errs.ExportError("invalid s3 destination %q, expected s3://bucket/key", uri)
	}
	rest := uri[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", errs.ExportError("invalid s3 destination %q, missing key", uri)
}

// unsupportedExporter covers the remote sinks spec.md names as
// ambient targets without specifying a wire protocol (DynamoDB,
// Delta, Redshift, SharePoint Excel): out of scope per spec.md §1,
// kept as a named stub so a chain config referencing one fails with a
// clear export error instead of an unknown-format one.
type unsupportedExporter struct{ kind string }

func (e unsupportedExporter) Export(ctx context.Context, records []map[string]interface{}) (string, error) {
	// TODO: wire a real client once a target account/schema is chosen.
	return "", errs.ExportError("export sink %q is not implemented", e.kind)
}
