package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	chunk "github.com/clarkmcc/rasterchunk"
)

const usage = `Encode: rasterchunk encode [-max-image-size N] [-codec png|qoi] [-prefix P] <input-file> <dir|s3://bucket/prefix|->
Decode: rasterchunk decode [-codec png|qoi] [-prefix P] [-trust-sequence] <dir|s3://bucket/prefix|-> <output-file>
`

func parseTarget(target string) (string, string) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(target, "s3://"), "/")
	parts := strings.Split(trimmed, "/")
	return parts[0], strings.Join(parts[1:], "/")
}

func isS3(target string) bool { return strings.HasPrefix(target, "s3://") }

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch subcommand := os.Args[1]; subcommand {
	case "encode":
		fs := flag.NewFlagSet("encode", flag.ExitOnError)
		maxImageSize := fs.Int("max-image-size", chunk.DefaultMaxImageSize, "The byte capacity of each raster, including the 8 byte frame header")
		codecName := fs.String("codec", "png", "The lossless image format of the rasters (png or qoi)")
		prefix := fs.String("prefix", chunk.DefaultPrefix, "The name prefix of each raster")
		fs.Parse(os.Args[2:])
		if fs.NArg() != 2 {
			log.Fatalf("encode expects <input-file> <target>\n%s", usage)
		}
		codec, err := chunk.CodecByName(*codecName)
		if err != nil {
			log.Fatalf("%v", err)
		}
		n, err := encodeFile(ctx, fs.Arg(0), fs.Arg(1), *prefix, codec, *maxImageSize)
		if err != nil {
			log.Fatalf("Encoding failed: %v", err)
		}
		log.Printf("Encoded %v into %d rasters", fs.Arg(0), n)
	case "decode":
		fs := flag.NewFlagSet("decode", flag.ExitOnError)
		codecName := fs.String("codec", "png", "The lossless image format of the rasters (png or qoi), ignored for streams")
		prefix := fs.String("prefix", chunk.DefaultPrefix, "The name prefix of each raster, empty matches any")
		trust := fs.Bool("trust-sequence", false, "Order chunks by raster name instead of the embedded chunk index")
		fs.Parse(os.Args[2:])
		if fs.NArg() != 2 {
			log.Fatalf("decode expects <target> <output-file>\n%s", usage)
		}
		codec, err := chunk.CodecByName(*codecName)
		if err != nil {
			log.Fatalf("%v", err)
		}
		n, err := decodeFile(ctx, fs.Arg(0), fs.Arg(1), *prefix, codec, *trust)
		if err != nil {
			log.Fatalf("Decoding failed: %v", err)
		}
		log.Printf("Decoded %d bytes into %v", n, fs.Arg(1))
	default:
		log.Fatalf("Unknown subcommand %q\n%s", subcommand, usage)
	}
}

func newS3() *s3.S3 {
	return s3.New(session.Must(session.NewSession()))
}

func openSink(target, prefix string, codec chunk.Codec) (chunk.Sink, error) {
	switch {
	case target == "-":
		return chunk.NewStreamSink(os.Stdout, codec), nil
	case isS3(target):
		bucket, key := parseTarget(target)
		return chunk.NewS3Sink(newS3(), bucket, key, prefix, codec), nil
	default:
		return chunk.NewDirSink(target, prefix, codec)
	}
}

func openSource(ctx context.Context, target, prefix string, codec chunk.Codec) (chunk.Source, error) {
	switch {
	case target == "-":
		return chunk.NewStreamSource(os.Stdin), nil
	case isS3(target):
		bucket, key := parseTarget(target)
		return chunk.NewS3Source(ctx, newS3(), bucket, key, prefix, codec)
	default:
		return chunk.NewDirSource(target, prefix, codec)
	}
}

// progressEvery is the number of rasters between two progress lines.
const progressEvery = 100

type progressSink struct {
	chunk.Sink
	count int
	total int
}

func (p *progressSink) Put(ctx context.Context, index uint32, r *chunk.Raster) error {
	if err := p.Sink.Put(ctx, index, r); err != nil {
		return err
	}
	p.count++
	if p.count%progressEvery == 0 {
		log.Printf("Progress: %v / %v rasters", p.count, p.total)
	}
	return nil
}

type progressSource struct {
	chunk.Source
	count int
	total string
}

func newProgressSource(src chunk.Source) *progressSource {
	total := "?"
	if l, ok := src.(interface{ Len() int }); ok {
		total = fmt.Sprint(l.Len())
	}
	return &progressSource{Source: src, total: total}
}

func (p *progressSource) Next(ctx context.Context) (*chunk.Raster, error) {
	r, err := p.Source.Next(ctx)
	if err != nil {
		return nil, err
	}
	p.count++
	if p.count%progressEvery == 0 {
		log.Printf("Progress: %v / %v rasters", p.count, p.total)
	}
	return r, nil
}

func encodeFile(ctx context.Context, input, target, prefix string, codec chunk.Codec, maxImageSize int) (int, error) {
	fd, err := os.Open(input)
	if err != nil {
		return 0, err
	}
	defer fd.Close()
	info, err := fd.Stat()
	if err != nil {
		return 0, err
	}

	opts := (&chunk.EncoderOpts{MaxImageSize: maxImageSize}).WithDefaults()
	total := 0
	if maxPayload := int64(opts.MaxPayload()); maxPayload > 0 {
		total = int((info.Size() + maxPayload - 1) / maxPayload)
	}

	sink, err := openSink(target, prefix, codec)
	if err != nil {
		return 0, err
	}
	enc, err := chunk.NewEncoder(&progressSink{Sink: sink, total: total}, opts)
	if err != nil {
		return 0, err
	}
	return enc.Encode(ctx, fd)
}

// decodeFile writes to a temporary file next to output and only renames it
// into place once every raster has been decoded.
func decodeFile(ctx context.Context, target, output, prefix string, codec chunk.Codec, trust bool) (int64, error) {
	src, err := openSource(ctx, target, prefix, codec)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := chunk.NewDecoder(&chunk.DecoderOpts{TrustSequence: trust}).Decode(ctx, newProgressSource(src), tmp)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := closeAndRename(tmp, output); err != nil {
		return n, err
	}
	return n, nil
}

func closeAndRename(f *os.File, path string) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
