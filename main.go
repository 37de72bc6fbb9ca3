package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	jerrors "github.com/juju/errors"

	"github.com/zhukovaskychina/xrowstore/logger"
	"github.com/zhukovaskychina/xrowstore/server/conf"
	"github.com/zhukovaskychina/xrowstore/server/repl"
	"github.com/zhukovaskychina/xrowstore/server/storage/snapshot"
	"github.com/zhukovaskychina/xrowstore/server/storage/table"
)

const usage = `usage: xrowstore [-configPath rowstore.ini] [-restore snapshot] [datafile]

  -configPath   ini file with [rowstore], [logs] and [snapshot] sections
  -restore      rebuild the data file from a snapshot before opening it
  datafile      overrides rowstore.data_file
`

func main() {
	os.Exit(run())
}

func run() int {
	var configPath, restorePath string
	flag.StringVar(&configPath, "configPath", "", "config file path")
	flag.StringVar(&restorePath, "restore", "", "snapshot to restore before opening the table")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := &conf.CommandLineArgs{
		ConfigPath: configPath,
		DataFile:   flag.Arg(0),
	}
	config, err := conf.NewCfg().Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, jerrors.ErrorStack(err))
		return 1
	}

	logConfig := logger.LogConfig{
		ErrorLogPath: config.LogError,
		InfoLogPath:  config.LogInfos,
		LogLevel:     config.LogLevel,
	}
	if err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	codec, err := snapshot.ParseCodec(config.SnapshotCodec)
	if err != nil {
		logger.Errorf("snapshot.codec: %v", err)
		return 1
	}

	if restorePath != "" {
		m, err := snapshot.Restore(restorePath, config.DataFile)
		if err != nil {
			logger.Errorf("restore %s: %s", restorePath, jerrors.ErrorStack(jerrors.Trace(err)))
			return 1
		}
		logger.Infof("restored %s from %s (%s, %d bytes)", config.DataFile, m.Path, m.Codec, m.Length)
	}

	opts := &table.Options{MaxPages: uint32(config.MaxPages)}
	if err := serve(config.DataFile, opts, os.Stdin, os.Stdout, codec); err != nil {
		logger.Errorf("%s", jerrors.ErrorStack(err))
		return 1
	}
	return 0
}

// serve runs a session over the table at path. The table is closed on every
// exit path, a panic included, so the trailing page always reaches the file.
func serve(path string, opts *table.Options, in io.Reader, out io.Writer, codec snapshot.Codec) (err error) {
	tbl, err := table.Open(path, opts)
	if err != nil {
		return jerrors.Annotatef(err, "open table %s", path)
	}
	defer func() {
		if cerr := tbl.Close(); cerr != nil {
			logger.Errorf("close table %s: %v", path, cerr)
			if err == nil {
				err = jerrors.Annotatef(cerr, "close table %s", path)
			}
		}
	}()

	if err := repl.NewSession(tbl, in, out, codec).Run(); err != nil {
		return jerrors.Annotate(err, "session")
	}
	return nil
}
