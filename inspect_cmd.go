package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/keczkasz/studywave/tts"
	"github.com/keczkasz/studywave/tts/cleaner"
	"github.com/keczkasz/studywave/tts/langdetect"
	"github.com/keczkasz/studywave/tts/voice"
)

var (
	inspectClipboard bool
	segmentsLimit    int
	voicesHost       bool

	detectCmd = &cobra.Command{
		Use:     "detect [SOURCE]",
		Short:   "Detect the language of a document",
		Long:    paragraph(fmt.Sprintf("\n%s whether a document is English or Polish.", keyword("Detect"))),
		Example: paragraph("studywave detect notes.md\nstudywave detect --clipboard"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := loadDocument(args, inspectClipboard)
			if err != nil {
				return err
			}
			printDetection(os.Stdout, langdetect.New(cfg.SampleBytes).Detect(cleaner.Clean(doc.Text)))
			return nil
		},
	}

	segmentsCmd = &cobra.Command{
		Use:     "segments [SOURCE]",
		Short:   "Show how a document will be spoken",
		Long:    paragraph(fmt.Sprintf("\n%s the segments, prosody hints and pauses the engine will speak.", keyword("List"))),
		Example: paragraph("studywave segments notes.md\nstudywave segments --limit 0 notes.md"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := loadDocument(args, inspectClipboard)
			if err != nil {
				return err
			}

			var lang tts.Language
			if !cfg.AutoDetect() {
				lang, _ = tts.ParseLanguage(cfg.Language)
			}
			processor, closeCache := newProcessor(cfg)
			defer closeCache() //nolint:errcheck
			return printSegments(os.Stdout, processor.Process(doc.Text, lang), segmentsLimit)
		},
	}

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List voice personalities",
		Long:    paragraph(fmt.Sprintf("\n%s the voice personalities and the host voice each one uses.", keyword("List"))),
		Example: paragraph("studywave voices\nstudywave voices --host"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			sel := voice.New()

			var voices []tts.VoiceHandle
			if synth, err := newHost(cfg); err != nil {
				fmt.Fprintln(os.Stderr, errorText(fmt.Sprintf("%s engine unavailable: %v", cfg.Engine, err)))
			} else {
				voices = synth.Voices()
				_ = synth.Close()
			}

			if voicesHost {
				return printHostVoices(os.Stdout, voices)
			}
			return printPersonalities(os.Stdout, sel, voices)
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{detectCmd, segmentsCmd} {
		c.Flags().BoolVarP(&inspectClipboard, "clipboard", "c", false, "read the clipboard")
	}
	segmentsCmd.Flags().IntVarP(&segmentsLimit, "limit", "n", 20, "number of segments to show (0 for all)")
	voicesCmd.Flags().BoolVar(&voicesHost, "host", false, "list the voices reported by the engine")
}

func printDetection(w io.Writer, r langdetect.Result) {
	fmt.Fprintf(w, "%s %s (%s)\n", keyword("Language:"), r.Language.DisplayName(), r.Language)
	fmt.Fprintf(w, "%s %.0f%%\n", keyword("Confidence:"), r.Confidence*100)
}

func printSegments(w io.Writer, p tts.ProcessedText, limit int) error {
	fmt.Fprintf(w, "%s %s, %.0f%% confidence\n", keyword("Language:"), p.Language.DisplayName(), p.Confidence*100)
	fmt.Fprintf(w, "%s %s words, %s sentences, %s segments, about %s\n\n",
		keyword("Document:"),
		humanize.Comma(int64(p.Metadata.WordCount)),
		humanize.Comma(int64(p.Metadata.SentenceCount)),
		humanize.Comma(int64(len(p.Segments))),
		clock(p.Metadata.EstimatedDuration),
	)

	t := newTable("#", "TYPE", "EMPHASIS", "PAUSE", "PITCH", "SPEED", "TEXT")
	for i, seg := range p.Segments {
		if limit > 0 && i >= limit {
			break
		}
		speed := "-"
		if seg.SpeedModifier != 0 {
			speed = humanize.FormatFloat("#.##", seg.SpeedModifier)
		}
		t.Row(
			strconv.Itoa(i+1),
			seg.Type.String(),
			seg.Emphasis.String(),
			fmt.Sprintf("%dms", seg.PauseAfterMs),
			fmt.Sprintf("%+.1f", seg.PitchShift),
			speed,
			truncate.StringWithTail(strings.ReplaceAll(seg.Text, "\n", " "), 60, "…"),
		)
	}
	fmt.Fprintln(w, t.Render())

	if limit > 0 && len(p.Segments) > limit {
		fmt.Fprintln(w, faint(fmt.Sprintf("\n… %d more", len(p.Segments)-limit)))
	}
	return nil
}

func printPersonalities(w io.Writer, sel *voice.Selector, voices []tts.VoiceHandle) error {
	t := newTable("ID", "NAME", "LANGUAGE", "GENDER", "STYLE", "HOST VOICE")
	for _, p := range sel.Personalities() {
		host := "-"
		if v := sel.Select(voices, p, nil); v != nil {
			host = v.Name
		}
		id := p.ID
		if id == cfg.Personality {
			id = keyword(id)
		}
		t.Row(id, p.DisplayName, p.Language.DisplayName(), string(p.Gender), string(p.Style), host)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func printHostVoices(w io.Writer, voices []tts.VoiceHandle) error {
	t := newTable("ID", "NAME", "LANGUAGE", "GENDER", "DEFAULT")
	for _, v := range voices {
		def := ""
		if v.Default {
			def = "yes"
		}
		t.Row(v.ID, v.Name, v.Language, string(v.Gender), def)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, faint(fmt.Sprintf("\n%s voices", humanize.Comma(int64(len(voices))))))
	return nil
}
