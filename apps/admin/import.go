package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/enrol"
)

type importer interface {
	Import(ctx context.Context, rows []enrol.ImportRow) enrol.BatchResult
}

// importStudents imports the rows of file and prints the BatchResult as JSON.
func (cli *commandLine) importStudents(ctx context.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "opening dataset")
	}
	defer func() { _ = f.Close() }()

	rows, err := enrol.DecodeSheet(f, file)
	if err != nil {
		return errors.Wrap(err, "decoding dataset")
	}

	res := cli.importer.Import(ctx, rows)
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
