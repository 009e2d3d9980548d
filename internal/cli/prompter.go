package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hearthkeep/hearthkeep/internal/model"
)

// ReviewDecision is the outcome of prompting the user about one document's
// assigned category.
type ReviewDecision struct {
	Category  string
	Skipped   bool
	Corrected bool // the user overrode the AI suggestion
}

// Prompter drives the interactive category review loop.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewPrompter creates a prompter reading from reader and writing to
// writer. Nil arguments default to stdin/stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// ConfirmCategory shows one document's details and AI-assigned category
// and asks the user to accept, correct, or skip.
func (p *Prompter) ConfirmCategory(ctx context.Context, doc model.Document, summary model.Summary, categories []model.Category) (ReviewDecision, error) {
	select {
	case <-ctx.Done():
		return ReviewDecision{}, ctx.Err()
	default:
	}

	content := p.formatDocument(doc, summary)
	fmt.Fprintln(p.writer, RenderBox("Document Review", content))

	fmt.Fprintf(p.writer, "  [A] Accept category: %s\n", SuccessStyle.Render(summary.Category))
	fmt.Fprintln(p.writer, "  [C] Choose a different category")
	fmt.Fprintln(p.writer, "  [S] Skip this document")
	fmt.Fprintln(p.writer)

	for {
		choice, err := p.readLine(ctx, FormatPrompt("Your choice [A/C/S]"))
		if err != nil {
			return ReviewDecision{}, err
		}

		switch strings.ToLower(choice) {
		case "", "a":
			return ReviewDecision{Category: summary.Category}, nil
		case "c":
			category, err := p.promptCategory(ctx, categories)
			if err != nil {
				return ReviewDecision{}, err
			}
			return ReviewDecision{
				Category:  category,
				Corrected: category != summary.Category,
			}, nil
		case "s":
			return ReviewDecision{Skipped: true}, nil
		default:
			fmt.Fprintln(p.writer, FormatWarning("Please enter A, C, or S"))
		}
	}
}

func (p *Prompter) promptCategory(ctx context.Context, categories []model.Category) (string, error) {
	fmt.Fprintln(p.writer, SubtitleStyle.Render("Available categories:"))
	for _, cat := range categories {
		fmt.Fprintf(p.writer, "  %s %s\n",
			BoldStyle.Render(cat.Name),
			SubtleStyle.Render(cat.Description))
	}

	for {
		name, err := p.readLine(ctx, FormatPrompt("Category name"))
		if err != nil {
			return "", err
		}
		name = strings.ToLower(name)
		for _, cat := range categories {
			if name == strings.ToLower(cat.Name) {
				return cat.Name, nil
			}
		}
		fmt.Fprintln(p.writer, FormatWarning(fmt.Sprintf("%q is not a known category", name)))
	}
}

func (p *Prompter) formatDocument(doc model.Document, summary model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", DocIcon, BoldStyle.Render(doc.Filename))
	if summary.DocumentType != "" {
		fmt.Fprintf(&b, "Type:    %s\n", summary.DocumentType)
	}
	if summary.Vendor != "" {
		fmt.Fprintf(&b, "Vendor:  %s\n", summary.Vendor)
	}
	if summary.Text != "" {
		fmt.Fprintf(&b, "Summary: %s\n", summary.Text)
	}
	fmt.Fprintf(&b, "Captured: %s", doc.CapturedAt.Format("2006-01-02"))
	return b.String()
}

// readLine reads one trimmed input line, honoring context cancellation.
// The read itself blocks in a goroutine; on cancellation the pending read
// is abandoned.
func (p *Prompter) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.writer, prompt+" ")

	type result struct {
		err  error
		line string
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}
