package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/seq2cov/internal/duckdb"
	"github.com/inodb/seq2cov/internal/index"
	"github.com/inodb/seq2cov/internal/region"
)

const testBED = "track name=targets\n" +
	"chr1\t0\t10\tG1\n" +
	"chr1\t20\t30\tG1\n" +
	"chr2\t5\t15\tG2\n"

const testSAM = "@HD\tVN:1.6\tSO:unsorted\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"@SQ\tSN:chr2\tLN:1000\n" +
	"@SQ\tSN:chr3\tLN:1000\n" +
	"r1\t0\tchr1\t1\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n" +
	"r2\t0\tchr1\t21\t60\t5M\t*\t0\t0\tACGTA\t*\n" +
	"r3\t0\tchr2\t6\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n" +
	"r4\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\t*\n" +
	"r5\t0\tchr3\t1\t60\t4M\t*\t0\t0\tACGT\t*\n"

const wantReport = "Sample\tGene\tChr\tStart\tEnd\tTag\tLength\tMeanDepth\n" +
	"S1\tG1\tchr1\t0\t10\tAmplicon\t11\t0.91\n" +
	"S1\tG1\tchr1\t20\t30\tAmplicon\t11\t0.45\n" +
	"S1\tG1\tchr1\t0\t30\tWhole-Gene\t22\t0.68\n" +
	"S1\tG2\tchr2\t5\t15\tAmplicon\t11\t0.91\n" +
	"S1\tG2\tchr2\t5\t15\tWhole-Gene\t11\t0.91\n"

// writeInputs writes the test BED and SAM files and returns their paths.
func writeInputs(t *testing.T) (bed, sam string) {
	t.Helper()
	dir := t.TempDir()
	bed = filepath.Join(dir, "targets.bed")
	sam = filepath.Join(dir, "sample.sam")
	require.NoError(t, os.WriteFile(bed, []byte(testBED), 0644))
	require.NoError(t, os.WriteFile(sam, []byte(testSAM), 0644))
	return bed, sam
}

func baseOptions(bed, sam string) countOptions {
	return countOptions{
		BAM:          sam,
		BED:          bed,
		Sample:       "S1",
		LegacyLength: true,
		Threads:      1,
		Index:        index.Sorted,
	}
}

func TestRunCount(t *testing.T) {
	bed, sam := writeInputs(t)

	for _, kind := range []index.Kind{index.Sorted, index.Tree} {
		t.Run(string(kind), func(t *testing.T) {
			opts := baseOptions(bed, sam)
			opts.Index = kind

			var out bytes.Buffer
			require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &out))
			assert.Equal(t, wantReport, out.String())
		})
	}
}

func TestRunCount_OutputFile(t *testing.T) {
	bed, sam := writeInputs(t)
	opts := baseOptions(bed, sam)
	opts.Output = filepath.Join(t.TempDir(), "S1.cov.txt")

	var stdout bytes.Buffer
	require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &stdout))
	assert.Empty(t, stdout.String())

	got, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, wantReport, string(got))
}

func TestRunCount_ExactLength(t *testing.T) {
	bed, sam := writeInputs(t)
	opts := baseOptions(bed, sam)
	opts.LegacyLength = false

	var out bytes.Buffer
	require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "S1\tG1\tchr1\t0\t10\tAmplicon\t10\t1.00", lines[1])
	assert.Equal(t, "S1\tG1\tchr1\t0\t30\tWhole-Gene\t20\t0.75", lines[3])
}

func TestRunCount_MissingName(t *testing.T) {
	_, sam := writeInputs(t)
	bed := filepath.Join(t.TempDir(), "noname.bed")
	require.NoError(t, os.WriteFile(bed, []byte("chr1\t0\t10\n"), 0644))

	var out bytes.Buffer
	err := runCount(context.Background(), baseOptions(bed, sam), zap.NewNop(), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not define name")
	assert.Empty(t, out.String(), "no partial report")
}

func TestRunCount_MalformedBED(t *testing.T) {
	_, sam := writeInputs(t)
	bed := filepath.Join(t.TempDir(), "bad.bed")
	require.NoError(t, os.WriteFile(bed, []byte("chr1\t0\t10\tA\nchr1\tx\t10\tB\n"), 0644))

	err := runCount(context.Background(), baseOptions(bed, sam), zap.NewNop(), &bytes.Buffer{})
	var pe *region.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
}

func TestRunCount_MissingAlignmentFile(t *testing.T) {
	bed, _ := writeInputs(t)
	opts := baseOptions(bed, filepath.Join(t.TempDir(), "absent.bam"))

	var out bytes.Buffer
	err := runCount(context.Background(), opts, zap.NewNop(), &out)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, out.String())
}

func TestRunCount_StoreAndReuse(t *testing.T) {
	bed, sam := writeInputs(t)
	dbPath := filepath.Join(t.TempDir(), "depth.duckdb")

	opts := baseOptions(bed, sam)
	opts.DuckDB = dbPath

	var first bytes.Buffer
	require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &first))
	assert.Equal(t, wantReport, first.String())

	// Remove the alignments: a reused report must not read them again.
	// Restoring the same size and mtime keeps the fingerprint identical.
	info, err := os.Stat(sam)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sam, bytes.Repeat([]byte{'x'}, int(info.Size())), 0644))
	require.NoError(t, os.Chtimes(sam, info.ModTime(), info.ModTime()))

	opts.Reuse = true
	var second bytes.Buffer
	require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &second))
	assert.Equal(t, wantReport, second.String())

	// Changing an option invalidates the stored run.
	opts.LegacyLength = false
	err = runCount(context.Background(), opts, zap.NewNop(), &bytes.Buffer{})
	assert.Error(t, err, "recomputing from the corrupted alignments fails")

	store, err := duckdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.LookupSample("S1")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestLoadOptions(t *testing.T) {
	v := viper.New()
	v.Set("bam", "a.bam")
	v.Set("bed", "t.bed")
	v.Set("sample-name", "S1")
	v.Set("threads", 4)
	v.Set("index", "tree")
	v.Set("legacy-length", true)

	opts, err := loadOptions(v)
	require.NoError(t, err)
	assert.Equal(t, "a.bam", opts.BAM)
	assert.Equal(t, "t.bed", opts.BED)
	assert.Equal(t, "S1", opts.Sample)
	assert.Equal(t, 4, opts.Threads)
	assert.Equal(t, index.Tree, opts.Index)
	assert.True(t, opts.LegacyLength)
}

func TestLoadOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want string
	}{
		{"missing bam", map[string]any{"bed": "t.bed", "sample-name": "S"}, "--bam"},
		{"missing bed", map[string]any{"bam": "a.bam", "sample-name": "S"}, "--bed"},
		{"missing sample", map[string]any{"bam": "a.bam", "bed": "t.bed"}, "--sample-name"},
		{"both stdin", map[string]any{"bam": "-", "bed": "-", "sample-name": "S"}, "stdin"},
		{"zero threads", map[string]any{"bam": "a.bam", "bed": "t.bed", "sample-name": "S", "threads": 0}, "--threads"},
		{"reuse without store", map[string]any{"bam": "a.bam", "bed": "t.bed", "sample-name": "S", "threads": 1, "reuse": true}, "--duckdb"},
		{"unknown index", map[string]any{"bam": "a.bam", "bed": "t.bed", "sample-name": "S", "threads": 1, "index": "btree"}, "btree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := loadOptions(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRootCmd(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	bed, sam := writeInputs(t)
	out := filepath.Join(t.TempDir(), "S1.txt")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-b", sam, "-p", bed, "-N", "S1", "-o", out, "--index", "tree"})
	require.NoError(t, cmd.Execute())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, wantReport, string(got))
}

func TestRootCmd_UsageError(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-p", "t.bed", "-N", "S1"})
	err := cmd.Execute()

	var ue *usageError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, err.Error(), "--bam")
}

func TestRootCmd_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	bed, sam := writeInputs(t)
	t.Setenv("SEQ2COV_SAMPLE_NAME", "FromEnv")
	t.Setenv("SEQ2COV_LEGACY_LENGTH", "false")

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"-b", sam, "-p", bed})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "FromEnv\tG1\tchr1\t0\t10\tAmplicon\t10\t1.00", lines[1])
}

func TestConfigSetGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	home := t.TempDir()
	t.Setenv("HOME", home)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "set", "index", "tree"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Set index = tree")

	data, err := os.ReadFile(filepath.Join(home, configName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "index: tree")

	viper.Reset()
	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "get", "index"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "tree\n", out.String())
}

func TestVersionCmd(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "seq2cov version dev (none) built unknown\n", out.String())
}

func TestConfigSet_UnknownKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "set", "indx", "tree"})
	err := cmd.Execute()

	var ue *usageError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, err.Error(), `"indx"`)

	_, err = os.Stat(filepath.Join(home, configName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestQueryCmd(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	bed, sam := writeInputs(t)
	dbPath := filepath.Join(t.TempDir(), "depth.duckdb")
	opts := baseOptions(bed, sam)
	opts.DuckDB = dbPath
	require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &bytes.Buffer{}))
	opts.Sample = "S2"
	require.NoError(t, runCount(context.Background(), opts, zap.NewNop(), &bytes.Buffer{}))

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"query", "--duckdb", dbPath}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := execute()
	require.NoError(t, err)
	assert.Equal(t, "S1\nS2\n", out)

	out, err = execute("--sample", "S1")
	require.NoError(t, err)
	assert.Equal(t, wantReport, out)

	out, err = execute("--gene", "G2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "S1\tG2\t"))
	assert.True(t, strings.HasPrefix(lines[3], "S2\tG2\t"))

	_, err = execute("--sample", "S1", "--gene", "G2")
	var ue *usageError
	assert.True(t, errors.As(err, &ue))
}
