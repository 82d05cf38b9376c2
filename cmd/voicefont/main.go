package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/voxcraft/voicefont-go/pkg/audio/wav"
	"github.com/voxcraft/voicefont-go/pkg/costmodel"
	"github.com/voxcraft/voicefont-go/pkg/feature"
	"github.com/voxcraft/voicefont-go/pkg/lattice"
	"github.com/voxcraft/voicefont-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "voicefont",
	Short: "voicefont - offline voice-building toolkit for unit-selection synthesis",
	Long: `voicefont compiles trained unit-selection cost tables into the binary
voice-font format consumed by the runtime engine, and provides offline
inspection of compiled fonts and rendered unit sequences.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a text weight table into a binary cost-model section",
	RunE: func(cmd *cobra.Command, args []string) error {
		tablePath, _ := cmd.Flags().GetString("table")
		phonesPath, _ := cmd.Flags().GetString("phones")
		tones, _ := cmd.Flags().GetInt("tones")
		out, _ := cmd.Flags().GetString("out")
		formatVersion, _ := cmd.Flags().GetUint32("format-version")
		build, _ := cmd.Flags().GetUint32("build")

		logger := setupLogger()

		if tablePath == "" {
			return fmt.Errorf("--table is required")
		}
		if phonesPath == "" {
			return fmt.Errorf("--phones is required")
		}
		if out == "" {
			return fmt.Errorf("--out is required")
		}

		phones, err := readPhoneList(phonesPath)
		if err != nil {
			return err
		}
		schema, err := feature.NewSchema(phones, tones)
		if err != nil {
			return err
		}

		model, err := costmodel.LoadFile(tablePath, schema, logger)
		if err != nil {
			return err
		}

		if err := model.ExportAPLFile(out, formatVersion, build); err != nil {
			return err
		}
		logger.Info("cost model compiled",
			slog.String("out", out),
			slog.Uint64("lang_id", uint64(model.LangID())))
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <font-file>",
	Short: "Print the header of a binary cost-model section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := costmodel.ReadInfo(f)
		if err != nil {
			return err
		}

		fmt.Printf("tag:            0x%08X\n", info.Header.Tag)
		fmt.Printf("signature:      %s\n", info.Header.Signature[:])
		fmt.Printf("size:           %d\n", info.Header.Size)
		fmt.Printf("format version: %d\n", info.Header.Version)
		fmt.Printf("build:          %d\n", info.Header.Build)
		fmt.Printf("languages:      %d\n", info.Header.LanguageCount)
		fmt.Printf("data offset:    %d\n", info.Header.DataOffset)
		fmt.Printf("language id:    %d\n", info.LangID)
		fmt.Printf("target tables:  %d\n", info.TableCount)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Cut a unit sequence from a raw PCM corpus into a WAV file",
	Long: `render reads a raw little-endian 16-bit mono PCM corpus, cuts the given
unit sample ranges and concatenates them into a WAV file, so a selected
route can be auditioned without the runtime engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		corpusPath, _ := cmd.Flags().GetString("corpus")
		rate, _ := cmd.Flags().GetUint32("rate")
		unitsArg, _ := cmd.Flags().GetString("units")
		out, _ := cmd.Flags().GetString("out")

		logger := setupLogger()

		if corpusPath == "" {
			return fmt.Errorf("--corpus is required")
		}
		if unitsArg == "" {
			return fmt.Errorf("--units is required")
		}
		if out == "" {
			return fmt.Errorf("--out is required")
		}

		units, err := parseUnits(unitsArg)
		if err != nil {
			return err
		}
		corpus, err := readCorpus(corpusPath)
		if err != nil {
			return err
		}

		w, err := wav.NewWriter(out, rate)
		if err != nil {
			return err
		}
		var samples []int16
		for _, u := range units {
			before := len(samples)
			samples = u.CutSamples(samples, corpus)
			if len(samples) == before && u.SampleLength > 0 {
				w.Close()
				return fmt.Errorf("unit %d:%d is outside the corpus (%d samples)",
					u.SampleOffset, u.SampleLength, len(corpus))
			}
		}
		if err := w.WriteSamples(samples); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		logger.Info("unit sequence rendered",
			slog.String("out", out),
			slog.Int("units", len(units)),
			slog.Int("samples", len(samples)))
		return nil
	},
}

// readPhoneList reads one phone symbol per line, canonical id order.
func readPhoneList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open phone list: %w", err)
	}
	defer f.Close()

	var phones []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		phones = append(phones, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read phone list: %w", err)
	}
	return phones, nil
}

// parseUnits parses "offset:length,offset:length,..." into units.
func parseUnits(arg string) ([]lattice.Unit, error) {
	var units []lattice.Unit
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, ":", 2)
		if len(pair) != 2 {
			return nil, fmt.Errorf("bad unit %q, want offset:length", part)
		}
		off, err := strconv.ParseInt(pair[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad unit offset %q", pair[0])
		}
		length, err := strconv.ParseInt(pair[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad unit length %q", pair[1])
		}
		units = append(units, lattice.Unit{SampleOffset: off, SampleLength: length})
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no units given")
	}
	return units, nil
}

// readCorpus loads a raw little-endian int16 mono PCM file.
func readCorpus(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("corpus %s has odd byte length %d", path, len(raw))
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return samples, nil
}

func setupLogger() *slog.Logger {
	logFormat := os.Getenv("VF_LOG_FORMAT")
	logLevel := os.Getenv("VF_LOG_LEVEL")

	var handler slog.Handler
	opts := &slog.HandlerOptions{}

	switch logLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func init() {
	compileCmd.Flags().String("table", "", "Path to the trained text weight table")
	compileCmd.Flags().String("phones", "", "Path to the phone inventory, one symbol per line in canonical id order")
	compileCmd.Flags().Int("tones", 5, "Tone count of the linguistic front end")
	compileCmd.Flags().String("out", "", "Output path for the binary cost-model section")
	compileCmd.Flags().Uint32("format-version", 1, "Format version stamped into the header")
	compileCmd.Flags().Uint32("build", 0, "Build number stamped into the header")

	renderCmd.Flags().String("corpus", "", "Path to the raw 16-bit mono PCM corpus")
	renderCmd.Flags().Uint32("rate", 16000, "Corpus sample rate in Hz")
	renderCmd.Flags().String("units", "", "Comma-separated unit sample ranges, offset:length")
	renderCmd.Flags().String("out", "", "Output WAV path")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
