// Package report renders a completed diagnosis as a downloadable PDF.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"triage-chatbot/internal/engine"
	"triage-chatbot/pkg"
)

// Build writes a one-page PDF report for a completed diagnosis to w.
func Build(w io.Writer, rec pkg.DiagnosisRecord) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Diagnosis Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Diagnosis Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	if rec.PatientName != "" {
		field(pdf, "Patient", rec.PatientName)
	}
	field(pdf, "Date", rec.CreatedAt.Format("2006-01-02 15:04"))
	field(pdf, "Reported symptoms", strings.Join(displayNames(rec.Symptoms), ", "))
	field(pdf, "Initial assessment", fmt.Sprintf("%s (%.2f%% confidence)", rec.InitialLabel, rec.InitialConfidence))
	field(pdf, "Final assessment", fmt.Sprintf("%s (%.2f%% confidence)", rec.FinalLabel, rec.FinalConfidence))

	if rec.Description != "" {
		pdf.Ln(4)
		heading(pdf, "About this condition")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, rec.Description, "", "L", false)
	}

	if len(rec.Precautions) > 0 {
		pdf.Ln(4)
		heading(pdf, "Recommended precautions")
		pdf.SetFont("Helvetica", "", 11)
		for i, p := range rec.Precautions {
			pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, p), "", "L", false)
		}
	}

	if rec.Advisory != "" {
		pdf.Ln(4)
		heading(pdf, "Advisory")
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, rec.Advisory, "", "L", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 5, "This report is generated by an automated symptom checker and is not a substitute for professional medical advice.", "", "L", false)

	return pdf.Output(w)
}

func field(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(50, 7, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 7, value, "", "L", false)
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}

func displayNames(symptoms []string) []string {
	out := make([]string, len(symptoms))
	for i, s := range symptoms {
		out[i] = engine.DisplayName(s)
	}
	return out
}
