// Package export renders a story transcript for download.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/genre"
)

const (
	pageMargin = 20.0
	lineHeight = 6.0
)

// TranscriptText returns the folded transcript: every segment's text, with
// each chosen option on its own "> " line.
func TranscriptText(snap engine.Snapshot) string {
	return snap.Transcript
}

// Title builds a document title from the session's genres.
func Title(snap engine.Snapshot) string {
	if len(snap.Settings.Genres) == 0 {
		return "Story"
	}
	phrase := genre.Join(snap.Settings.Genres, snap.Settings.Language)
	return genre.Title(phrase, snap.Settings.Language)
}

// TranscriptPDF renders the story as an A4 document. Core fonts cover
// Latin scripts only; characters outside cp1252 are replaced.
func TranscriptPDF(title string, snap engine.Snapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(title, true)
	pdf.SetCreator("choice-engine", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 10, tr(title), "", "L", false)
	pdf.Ln(4)

	if len(snap.History) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, lineHeight, "No story yet.", "", "L", false)
	}

	for _, seg := range snap.History {
		pdf.SetFont("Times", "", 12)
		for _, para := range paragraphs(seg.Text) {
			pdf.MultiCell(0, lineHeight, tr(para), "", "L", false)
			pdf.Ln(2)
		}
		if seg.SelectedOption != "" {
			pdf.SetFont("Times", "I", 12)
			pdf.SetTextColor(90, 90, 90)
			pdf.MultiCell(0, lineHeight, tr("> "+seg.SelectedOption), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(4)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render transcript pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write transcript pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
