package receipt

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProcessorVersion tags every parse in the receipt metadata.
const ProcessorVersion = "1.0.0"

// Parser runs all field extractors over one receipt's raw text and assembles
// the structured record. Parsing never fails: extractors that find nothing
// leave their field unset and lower the confidence score.
type Parser struct {
	chains *chainDetector
	logger *slog.Logger
	now    func() time.Time
}

// NewParser creates a receipt parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{
		chains: newChainDetector(),
		logger: logger,
		now:    time.Now,
	}
}

// Parse extracts all structured fields from one receipt's raw text.
func (p *Parser) Parse(rawText string) *ExtractedReceipt {
	lines := strings.Split(rawText, "\n")

	chain, found := p.chains.detect(rawText)
	if !found {
		chain = "unknown"
	}

	rec := &ExtractedReceipt{
		RawText:         rawText,
		StoreName:       extractStoreName(lines, p.chains),
		StoreAddress:    extractStoreAddress(lines),
		StorePhone:      extractFirstGroup(rawText, phonePatterns),
		ReceiptNumber:   extractFirstGroup(rawText, receiptNumberPatterns),
		CashierID:       extractFirstGroup(rawText, cashierPatterns),
		RegisterNumber:  extractFirstGroup(rawText, registerPatterns),
		TransactionDate: extractDate(rawText),
		TransactionTime: extractTime(rawText),
		Subtotal:        extractSubtotal(rawText),
		TaxAmount:       extractTaxAmount(rawText),
		TotalAmount:     extractTotalAmount(rawText),
		PaymentMethod:   extractPaymentMethod(rawText),
		Items:           extractItems(rawText),
		TaxBreakdown:    extractTaxBreakdown(rawText),
		Confidence:      scoreConfidence(rawText, p.chains),
		Metadata: Metadata{
			ProcessingTimestamp: p.now().UTC(),
			ProcessorVersion:    ProcessorVersion,
			Language:            "de",
			StoreChain:          chain,
		},
	}

	p.logger.Info("receipt parsed",
		"chain", chain,
		"items", len(rec.Items),
		"confidence", rec.Confidence,
	)

	return rec
}

// TextExtractor converts raw PDF bytes into the concatenated page texts. It
// is supplied by an external collaborator; any failure it reports is fatal
// for the whole document.
type TextExtractor func(pdf []byte) (string, error)

// Processor couples a text extractor with the parser. This is the only path
// on which receipt processing can fail.
type Processor struct {
	extract TextExtractor
	parser  *Parser
	logger  *slog.Logger
}

// NewProcessor creates a document processor around an external text extractor.
func NewProcessor(extract TextExtractor, parser *Parser, logger *slog.Logger) *Processor {
	return &Processor{extract: extract, parser: parser, logger: logger}
}

// ProcessDocument extracts text from the PDF bytes and parses it. Extraction
// failure propagates; parsing itself cannot fail.
func (p *Processor) ProcessDocument(pdf []byte) (*ExtractedReceipt, error) {
	rawText, err := p.extract(pdf)
	if err != nil {
		p.logger.Error("text extraction failed", "error", err)
		return nil, fmt.Errorf("failed to extract text from PDF: %w", err)
	}

	return p.parser.Parse(strings.TrimSpace(rawText)), nil
}
