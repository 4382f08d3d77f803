// Copyright 2024 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command trailbase-build constructs a trail database from a CSV file
// and finalizes it with encode.DefaultEncoder. The CSV's header names
// its output fields (plus two required leading columns, uuid and
// time); every row after the header becomes one event.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/grailbio/trailbase/cons"
	"github.com/grailbio/trailbase/encode"
	"github.com/grailbio/trailbase/log"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("trailbase-build: ")

	input := flag.String("input", "", "CSV file to read events from (required)")
	output := flag.String("output", "", "output directory for the finalized database (required)")
	level := flag.Int("zstd-level", 0, "zstd compression level; 0 selects the default")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: trailbase-build -input events.csv -output dir

The CSV's header row is "uuid,time,<field>,<field>,...". Each
following row adds one event; an empty field cell is that event's
null value for that field.
`)
		os.Exit(2)
	}
	flag.Parse()
	if *input == "" || *output == "" {
		flag.Usage()
	}

	if err := run(*input, *output, *level); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(input, output string, level int) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 || header[0] != "uuid" || header[1] != "time" {
		return fmt.Errorf("header must start with uuid,time, got %v", header)
	}
	fields := append([]string(nil), header[2:]...)

	c, err := cons.Open(output, fields, cons.DefaultLimits)
	if err != nil {
		return fmt.Errorf("opening constructor: %w", err)
	}
	defer c.Close()

	numEvents := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading row %d: %w", numEvents+1, err)
		}
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d columns, want %d", numEvents+1, len(row), len(header))
		}
		u, err := uuid.Parse(row[0])
		if err != nil {
			return fmt.Errorf("row %d: %w", numEvents+1, err)
		}
		ts, err := strconv.ParseUint(row[1], 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: bad timestamp: %w", numEvents+1, err)
		}
		values := make([][]byte, len(fields))
		for i, v := range row[2:] {
			if v != "" {
				values[i] = []byte(v)
			}
		}
		if err := c.Add(u, ts, values); err != nil {
			return fmt.Errorf("row %d: %w", numEvents+1, err)
		}
		numEvents++
	}

	snap, err := c.Finalize(encode.DefaultEncoder{CompressionLevel: level})
	if err != nil {
		return fmt.Errorf("finalizing: %w", err)
	}
	log.Info.Printf("wrote %d trails from %d events to %s", snap.NumTrails(), numEvents, output)
	return nil
}
