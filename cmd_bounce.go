package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gopxl/beep"
	"github.com/spf13/cobra"

	"go-stepseq/bounce"
	"go-stepseq/scale"
	"go-stepseq/studio"
)

var (
	outWAV     string
	outMID     string
	bars       int
	seed       uint64
	patterns   []string
	sampleRate int
)

// Used for voices that have no pattern in the config
var defaultPatterns = []string{
	"x...x...x...x...",
	"..x...x.x...x..x",
}

var bounceCmd = &cobra.Command{
	Use:   "bounce",
	Short: "Render the pattern offline to a WAV (and optionally a MIDI file)",
	Long: `Renders the configured voices through the FM synth faster than real time.
A bar is one pass over the active steps. The same seed always renders the
same notes and parameter changes.`,
	RunE: runBounce,
}

func init() {
	bounceCmd.Flags().StringVarP(&outWAV, "output", "o", "", "Output .wav file (required)")
	bounceCmd.Flags().StringVar(&outMID, "mid", "", "Also write the events as a Standard MIDI File")
	bounceCmd.Flags().IntVar(&bars, "bars", 4, "Number of passes over the active steps")
	bounceCmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed for degrees and parameters")
	bounceCmd.Flags().StringSliceVar(&patterns, "pattern", nil, `Gate pattern per voice, e.g. --pattern "x...x...,..x...x."`)
	bounceCmd.Flags().IntVar(&sampleRate, "sample-rate", 0, "Sample rate (default from config)")
	bounceCmd.Flags().Float64Var(&tempo, "tempo", 0, "Tempo in BPM")
	bounceCmd.Flags().IntVar(&steps, "steps", 0, "Active steps (1-16)")
	_ = bounceCmd.MarkFlagRequired("output")
}

func runBounce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("sample-rate") {
		cfg.Audio.SampleRate = sampleRate
	}

	key, err := scale.Parse(cfg.Key.Tonic, cfg.Key.Mode, cfg.Key.Octave)
	if err != nil {
		return err
	}

	job := bounce.Job{
		SampleRate: beep.SampleRate(cfg.Audio.SampleRate),
		Loops:      bars,
		Seed:       seed,
		Options:    studio.SequencerOptions(cfg),
		Key:        key,
	}
	for i, vc := range cfg.Voices {
		pattern := vc.Pattern
		switch {
		case i < len(patterns):
			pattern = patterns[i]
		case pattern == "" && i < len(defaultPatterns):
			pattern = defaultPatterns[i]
		}
		job.Voices = append(job.Voices, bounce.Voice{Name: vc.Name, Pattern: pattern, ParamChance: vc.ParamChance})
	}

	w, err := os.Create(outWAV)
	if err != nil {
		return err
	}
	defer w.Close()

	var mid *os.File
	if outMID != "" {
		mid, err = os.Create(outMID)
		if err != nil {
			return err
		}
		defer mid.Close()
	}

	var res bounce.Result
	if mid != nil {
		res, err = bounce.Render(job, w, mid)
	} else {
		res, err = bounce.Render(job, w, nil)
	}
	if err != nil {
		return err
	}

	names := []string{outWAV}
	if outMID != "" {
		names = append(names, outMID)
	}
	fmt.Printf("Wrote %s: %v, %d notes, seed %d\n", strings.Join(names, " and "), res.Duration, res.Notes, seed)
	return nil
}
